package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/internal/server/storage"
)

// CreateSite enrolls a new site
func (s *Storage) CreateSite(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (id, name, auth_key_hash, public_salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		site.ID,
		site.Name,
		site.AuthKeyHash,
		site.PublicSalt,
		timeToMillis(site.CreatedAt),
		timeToMillis(site.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrSiteAlreadyExists
		}
		return fmt.Errorf("failed to insert site: %w", err)
	}

	return nil
}

// GetSiteByID retrieves a site by its identifier
func (s *Storage) GetSiteByID(ctx context.Context, siteID string) (*models.Site, error) {
	query := `
		SELECT id, name, auth_key_hash, public_salt, created_at, updated_at
		FROM sites
		WHERE id = ?
	`

	site := &models.Site{}
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, siteID).Scan(
		&site.ID,
		&site.Name,
		&site.AuthKeyHash,
		&site.PublicSalt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	site.CreatedAt = millisToTime(createdAt)
	site.UpdatedAt = millisToTime(updatedAt)

	return site, nil
}
