package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

// ChangeLog is the durable queue of replicated changes the engine reads and
// writes. Implemented by the server's SQLite change_log storage.
type ChangeLog interface {
	// Append stores a new change entry and returns it with its assigned ID.
	Append(ctx context.Context, change *models.ChangeRecord) (*models.ChangeRecord, error)

	// ListSynced returns SYNCED entries not originated by excludeSite with
	// updated_at strictly after since, oldest first, at most limit entries.
	// An empty tables slice means all tables.
	ListSynced(ctx context.Context, excludeSite string, since time.Time, tables []string, limit int) ([]*models.ChangeRecord, error)

	// ListPending returns the site's PENDING entries, oldest first.
	ListPending(ctx context.Context, siteID string) ([]*models.ChangeRecord, error)

	// UpdateStatus transitions one entry and records or clears its error message.
	UpdateStatus(ctx context.Context, id int64, status models.ChangeStatus, errorMessage string) error

	// RequeueFailed flips the site's FAILED entries back to PENDING,
	// clearing error messages, and returns the requeued entries.
	RequeueFailed(ctx context.Context, siteID string) ([]*models.ChangeRecord, error)

	// DeleteSyncedBefore removes the site's SYNCED entries last updated
	// before cutoff and returns how many were removed.
	DeleteSyncedBefore(ctx context.Context, siteID string, cutoff time.Time) (int, error)

	// TableCounts aggregates pending/failed counts and the last synced
	// time per table for one site.
	TableCounts(ctx context.Context, siteID string) (map[string]models.TableSyncCounts, error)
}

// ServerRecordStore extends the applier's store capability with the table
// scan full sync needs.
type ServerRecordStore interface {
	RecordStore

	// List returns all live rows of a table.
	List(ctx context.Context, table string) ([]*models.Record, error)
}

// Engine is the server-side synchronization engine: it owns the change log
// and applies incoming changes to the shared record store. The calling
// site's identity is always an explicit parameter, never ambient state.
type Engine struct {
	changeLog ChangeLog
	records   ServerRecordStore
	applier   *Applier
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates a synchronization engine.
func NewEngine(changeLog ChangeLog, records ServerRecordStore, logger *slog.Logger) *Engine {
	return &Engine{
		changeLog: changeLog,
		records:   records,
		applier:   NewApplier(records, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// PullResult is a bounded page of changes for a requesting site.
type PullResult struct {
	SyncTimestamp time.Time
	Changes       []*models.ChangeRecord
	HasMore       bool
}

// Pull returns already-synchronized changes produced by other sites,
// ordered by queue update time. It never mutates change statuses.
//
// HasMore is a cheap heuristic (page was full), not an exact remaining
// count; callers treat it as "pull again".
func (e *Engine) Pull(ctx context.Context, siteID string, since time.Time, tables []string, limit int) (*PullResult, error) {
	changes, err := e.changeLog.ListSynced(ctx, siteID, since, tables, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list synced changes: %w", err)
	}

	e.logger.Info("pull served",
		"site_id", siteID,
		"since", since,
		"count", len(changes))

	return &PullResult{
		Changes:       changes,
		SyncTimestamp: e.now(),
		HasMore:       len(changes) >= limit,
	}, nil
}

// PushItem pairs one processed change with its apply outcome.
type PushItem struct {
	Change *models.ChangeRecord
	Result ApplyResult
}

// PushResult reports per-item outcomes for a push batch. Items aligns
// one-to-one with the incoming batch; outcomes of the site's re-applied
// PENDING entries go to Reapplied and never shift the batch results.
type PushResult struct {
	SyncTimestamp time.Time
	Items         []PushItem
	Reapplied     []PushItem
}

// Push applies a batch of changes from a site, strictly in the order
// supplied, and records every change in the change log with its outcome.
//
// Durability is per item: each change commits independently, so a fault in
// one item is reported FAILED without rolling back its siblings. Before the
// incoming batch the engine re-applies the site's PENDING entries, which is
// how entries requeued by RetryFailed get their second chance; their
// outcomes are reported in Reapplied, separate from the batch results.
func (e *Engine) Push(ctx context.Context, siteID string, incoming []*models.ChangeRecord) (*PushResult, error) {
	result := &PushResult{}

	pending, err := e.changeLog.ListPending(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}

	for _, change := range pending {
		applied := e.applier.Apply(ctx, change)
		change.Status = statusFor(applied)
		change.ErrorMessage = errorMessageFor(applied)

		if err := e.changeLog.UpdateStatus(ctx, change.ID, change.Status, change.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to update change %d: %w", change.ID, err)
		}
		result.Reapplied = append(result.Reapplied, PushItem{Change: change, Result: applied})
	}

	for _, change := range incoming {
		change.OriginSiteID = siteID

		applied := e.applier.Apply(ctx, change)
		change.Status = statusFor(applied)
		change.ErrorMessage = errorMessageFor(applied)
		change.UpdatedAt = e.now()

		// The entry is stored with its payload even on CONFLICT so the
		// rejected state stays available for manual reconciliation.
		stored, err := e.changeLog.Append(ctx, change)
		if err != nil {
			return nil, fmt.Errorf("failed to record change for %s/%s: %w",
				change.TableName, change.RecordUUID, err)
		}
		result.Items = append(result.Items, PushItem{Change: stored, Result: applied})
	}

	result.SyncTimestamp = e.now()

	e.logger.Info("push processed",
		"site_id", siteID,
		"incoming", len(incoming),
		"reapplied", len(pending),
		"results", len(result.Items))

	return result, nil
}

// statusFor maps an apply outcome onto the change status machine.
func statusFor(r ApplyResult) models.ChangeStatus {
	switch r.Status {
	case ApplySuccess:
		return models.StatusSynced
	case ApplyConflict:
		return models.StatusConflict
	default:
		return models.StatusFailed
	}
}

// errorMessageFor returns the message to persist: only FAILED entries keep one.
func errorMessageFor(r ApplyResult) string {
	if r.Status == ApplyFailed {
		return r.Message
	}
	return ""
}
