package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

// TableBootstrap reports the full-sync outcome for one table.
type TableBootstrap struct {
	Status        ApplyStatus
	Message       string
	TotalRecords  int
	SyncedRecords int
}

// FullSync bootstraps a site by replaying every current row of the requested
// tables as a synthetic CREATE change. The entries are appended to the change
// log already SYNCED, so the requesting site's next pull delivers them and
// its local applier replays them as creates.
//
// For site-owned tables the requester's own rows are skipped; catalog tables
// are replayed in full. One table's failure never aborts the others.
func (e *Engine) FullSync(ctx context.Context, siteID string, tables []string) map[string]TableBootstrap {
	if len(tables) == 0 {
		tables = models.SyncTableNames()
	}

	results := make(map[string]TableBootstrap, len(tables))
	for _, name := range tables {
		results[name] = e.bootstrapTable(ctx, siteID, name)
	}

	e.logger.Info("full sync completed", "site_id", siteID, "tables", len(tables))
	return results
}

func (e *Engine) bootstrapTable(ctx context.Context, siteID, name string) TableBootstrap {
	table, ok := models.LookupSyncTable(name)
	if !ok {
		return TableBootstrap{Status: ApplyFailed, Message: fmt.Sprintf("unknown table %q", name)}
	}

	rows, err := e.records.List(ctx, name)
	if err != nil {
		return TableBootstrap{Status: ApplyFailed, Message: fmt.Sprintf("list failed: %v", err)}
	}

	result := TableBootstrap{Status: ApplySuccess, TotalRecords: len(rows)}
	for _, row := range rows {
		if table.SiteOwned && row.OriginSiteID == siteID {
			continue
		}

		change := &models.ChangeRecord{
			TableName:        name,
			RecordUUID:       row.UUID,
			RecordID:         row.RecordID,
			Operation:        models.OperationCreate,
			Payload:          row.Payload,
			Status:           models.StatusSynced,
			OriginSiteID:     bootstrapOrigin(row),
			CreatedAtOffline: row.UpdatedAt,
			UpdatedAt:        e.now(),
		}

		if _, err := e.changeLog.Append(ctx, change); err != nil {
			result.Status = ApplyFailed
			result.Message = fmt.Sprintf("enqueue failed for %s: %v", row.UUID, err)
			return result
		}
		result.SyncedRecords++
	}

	return result
}

// bootstrapOrigin attributes a replayed row to its creating site, or to the
// central store for catalog rows, so the pull filter never hides it from the
// requester by accident.
func bootstrapOrigin(row *models.Record) string {
	if row.OriginSiteID != "" {
		return row.OriginSiteID
	}
	return "central"
}

// StatusResult aggregates change-queue health for one site.
type StatusResult struct {
	LastSync       *time.Time
	Tables         map[string]models.TableSyncCounts
	PendingChanges int
	FailedChanges  int
}

// Status reports per-table queue health for a site. Pure aggregation over
// the change log; nothing is mutated.
func (e *Engine) Status(ctx context.Context, siteID string) (*StatusResult, error) {
	counts, err := e.changeLog.TableCounts(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate change counts: %w", err)
	}

	result := &StatusResult{Tables: counts}
	for _, c := range counts {
		result.PendingChanges += c.Pending
		result.FailedChanges += c.Failed
		if c.LastSyncedAt != nil && (result.LastSync == nil || c.LastSyncedAt.After(*result.LastSync)) {
			result.LastSync = c.LastSyncedAt
		}
	}
	return result, nil
}

// RetryFailed requeues the site's FAILED entries as PENDING and clears their
// error messages. Nothing is re-applied immediately; the entries get their
// second chance on the site's next push cycle.
func (e *Engine) RetryFailed(ctx context.Context, siteID string) ([]*models.ChangeRecord, error) {
	requeued, err := e.changeLog.RequeueFailed(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue changes: %w", err)
	}

	e.logger.Info("failed changes requeued", "site_id", siteID, "count", len(requeued))
	return requeued, nil
}

// CleanupResult reports a pruning pass over the change log.
type CleanupResult struct {
	CleanupDate    time.Time
	DeletedRecords int
}

// Cleanup prunes the site's SYNCED entries last updated before now minus
// daysOld days. PENDING, FAILED and CONFLICT entries are never deleted,
// whatever their age.
func (e *Engine) Cleanup(ctx context.Context, siteID string, daysOld int) (*CleanupResult, error) {
	now := e.now()
	cutoff := now.AddDate(0, 0, -daysOld)

	deleted, err := e.changeLog.DeleteSyncedBefore(ctx, siteID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete synced changes: %w", err)
	}

	e.logger.Info("cleanup completed",
		"site_id", siteID,
		"days_old", daysOld,
		"deleted", deleted)

	return &CleanupResult{DeletedRecords: deleted, CleanupDate: now}, nil
}
