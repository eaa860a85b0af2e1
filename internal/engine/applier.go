package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

// RecordStore is the capability interface the applier needs from a generic
// data store. Find returns (nil, nil) when no live record exists; soft-deleted
// rows are treated as absent. One implementation exists per storage
// technology (SQLite on the server, bbolt in the site agent).
type RecordStore interface {
	// Find locates the current live row for (table, uuid).
	Find(ctx context.Context, table, uuid string) (*models.Record, error)

	// Insert creates a new row.
	Insert(ctx context.Context, record *models.Record) error

	// Update replaces the payload and modification time of an existing row.
	Update(ctx context.Context, record *models.Record) error

	// SoftDelete marks a row deleted without removing it.
	SoftDelete(ctx context.Context, table, uuid string, at time.Time) error
}

// ApplyStatus is the per-change outcome reported by the applier.
type ApplyStatus string

const (
	ApplySuccess  ApplyStatus = "SUCCESS"
	ApplyConflict ApplyStatus = "CONFLICT"
	ApplyFailed   ApplyStatus = "FAILED"
)

// Conflict reasons surfaced in ConflictDetail.
const (
	ReasonAlreadyExists = "already_exists"
	ReasonLocalNewer    = "local_newer"
)

// ConflictDetail explains a rejected change: which record state won and the
// timestamps that were compared.
type ConflictDetail struct {
	LocalUpdatedAt    *time.Time
	IncomingTimestamp time.Time
	Reason            string
}

// ApplyResult is the outcome of applying one change.
type ApplyResult struct {
	Conflict *ConflictDetail
	Status   ApplyStatus
	Message  string
}

// Applier applies single changes to a generic record store, delegating
// accept/reject decisions to Resolve. Foreseeable per-item faults are caught
// and reported as FAILED so one broken change never aborts its siblings.
type Applier struct {
	records RecordStore
	logger  *slog.Logger
}

// NewApplier creates an applier over the given record store.
func NewApplier(records RecordStore, logger *slog.Logger) *Applier {
	return &Applier{
		records: records,
		logger:  logger,
	}
}

// Apply applies one change and reports the outcome. It is idempotent:
// re-applying an applied CREATE yields CONFLICT instead of a duplicate row,
// and re-applying an applied UPDATE with the same origin time succeeds again
// with no observable difference.
func (a *Applier) Apply(ctx context.Context, change *models.ChangeRecord) ApplyResult {
	if !change.Operation.Valid() {
		return failed(fmt.Sprintf("unknown operation %q", change.Operation))
	}

	existing, err := a.records.Find(ctx, change.TableName, change.RecordUUID)
	if err != nil {
		return failed(fmt.Sprintf("lookup failed: %v", err))
	}

	decision := Resolve(existing, change.Operation, change.CreatedAtOffline)

	a.logger.Debug("resolved change",
		"table", change.TableName,
		"uuid", change.RecordUUID,
		"operation", change.Operation,
		"decision", decision.String())

	switch decision {
	case DecisionConflict:
		detail := &ConflictDetail{
			Reason:            ReasonLocalNewer,
			IncomingTimestamp: change.CreatedAtOffline,
		}
		if change.Operation == models.OperationCreate {
			detail.Reason = ReasonAlreadyExists
		}
		if existing != nil {
			updatedAt := existing.UpdatedAt
			detail.LocalUpdatedAt = &updatedAt
		}
		return ApplyResult{
			Status:   ApplyConflict,
			Message:  conflictMessage(detail),
			Conflict: detail,
		}

	case DecisionNoopSuccess:
		return ApplyResult{Status: ApplySuccess, Message: "record already absent"}

	case DecisionApply, DecisionCreateInstead:
		return a.write(ctx, change, decision, existing != nil)
	}

	return failed(fmt.Sprintf("unhandled decision %v", decision))
}

// write performs the storage mutation for an accepted change.
func (a *Applier) write(ctx context.Context, change *models.ChangeRecord, decision Decision, exists bool) ApplyResult {
	if change.Operation == models.OperationDelete {
		if err := a.records.SoftDelete(ctx, change.TableName, change.RecordUUID, change.CreatedAtOffline); err != nil {
			return failed(fmt.Sprintf("delete failed: %v", err))
		}
		return ApplyResult{Status: ApplySuccess}
	}

	if len(change.Payload) == 0 {
		return failed("change has no payload")
	}

	record := &models.Record{
		TableName:    change.TableName,
		UUID:         change.RecordUUID,
		Payload:      change.Payload,
		OriginSiteID: change.OriginSiteID,
		UpdatedAt:    change.CreatedAtOffline,
		RecordID:     change.RecordID,
	}

	// UPDATE of an absent record is applied as a create (the target never
	// arrived at this store). A soft-deleted row counts as absent, so the
	// insert path must tolerate the dead row underneath.
	if decision == DecisionCreateInstead || !exists {
		if err := a.records.Insert(ctx, record); err != nil {
			return failed(fmt.Sprintf("insert failed: %v", err))
		}
		return ApplyResult{Status: ApplySuccess}
	}

	if err := a.records.Update(ctx, record); err != nil {
		return failed(fmt.Sprintf("update failed: %v", err))
	}
	return ApplyResult{Status: ApplySuccess}
}

func conflictMessage(d *ConflictDetail) string {
	if d.Reason == ReasonAlreadyExists {
		return "record already exists"
	}
	if d.LocalUpdatedAt != nil {
		return fmt.Sprintf("local record modified at %s is newer than change from %s",
			d.LocalUpdatedAt.UTC().Format(time.RFC3339),
			d.IncomingTimestamp.UTC().Format(time.RFC3339))
	}
	return "local record is newer"
}

func failed(msg string) ApplyResult {
	return ApplyResult{Status: ApplyFailed, Message: msg}
}
