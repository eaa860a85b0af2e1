package validation

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/iudanet/sitesync/internal/models"
)

// SiteIDPattern defines the allowed site identifier format:
// lowercase letters, digits and hyphens, 3-32 characters.
var SiteIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,31}$`)

const (
	// DefaultPullLimit is used when a pull request omits the limit.
	DefaultPullLimit = 100
	// MaxPullLimit caps the page size of a pull request.
	MaxPullLimit = 1000

	// DefaultCleanupDays is used when a cleanup request omits days_old.
	DefaultCleanupDays = 30
	// MaxCleanupDays caps the cleanup retention window.
	MaxCleanupDays = 365
)

// ValidateSiteID checks that a site identifier matches the required format.
func ValidateSiteID(siteID string) error {
	if siteID == "" {
		return fmt.Errorf("site_id cannot be empty")
	}
	if !SiteIDPattern.MatchString(siteID) {
		return fmt.Errorf("site_id must be 3-32 lowercase letters, digits or hyphens")
	}
	return nil
}

// MinPassphraseLength is the minimum length of a site enrollment passphrase.
const MinPassphraseLength = 12

// ValidatePassphrase checks a site enrollment passphrase.
func ValidatePassphrase(passphrase string) error {
	if len(passphrase) < MinPassphraseLength {
		return fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	}
	return nil
}

// ValidateTableName checks that a table is part of the replicated set.
func ValidateTableName(table string) error {
	if table == "" {
		return fmt.Errorf("table_name cannot be empty")
	}
	if _, ok := models.LookupSyncTable(table); !ok {
		return fmt.Errorf("table %q is not syncable", table)
	}
	return nil
}

// ValidateTableNames checks an optional table filter. Empty means all tables.
func ValidateTableNames(tables []string) error {
	for _, table := range tables {
		if err := ValidateTableName(table); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRecordUUID checks that a record identifier is a well-formed UUID.
func ValidateRecordUUID(recordUUID string) error {
	if recordUUID == "" {
		return fmt.Errorf("record_uuid cannot be empty")
	}
	if _, err := uuid.Parse(recordUUID); err != nil {
		return fmt.Errorf("record_uuid is not a valid uuid: %w", err)
	}
	return nil
}

// ValidateOperation checks the mutation kind of a pushed change.
func ValidateOperation(op string) error {
	if !models.Operation(op).Valid() {
		return fmt.Errorf("operation must be CREATE, UPDATE or DELETE, got %q", op)
	}
	return nil
}

// NormalizePullLimit applies the default and bounds of the pull page size.
// Zero means "use the default"; out-of-range values are an error.
func NormalizePullLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultPullLimit, nil
	}
	if limit < 1 || limit > MaxPullLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", MaxPullLimit)
	}
	return limit, nil
}

// NormalizeCleanupDays applies the default and bounds of the cleanup
// retention window. Zero means "use the default".
func NormalizeCleanupDays(days int) (int, error) {
	if days == 0 {
		return DefaultCleanupDays, nil
	}
	if days < 1 || days > MaxCleanupDays {
		return 0, fmt.Errorf("days_old must be between 1 and %d", MaxCleanupDays)
	}
	return days, nil
}
