package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/iudanet/sitesync/internal/validation"
	"github.com/iudanet/sitesync/pkg/api"
)

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("site ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.engine.Status(ctx, siteID)
	if err != nil {
		h.logger.Error("status failed", "error", err, "site_id", siteID)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.StatusResponse{
		LastSync:       result.LastSync,
		PendingChanges: result.PendingChanges,
		FailedChanges:  result.FailedChanges,
		TablesStatus:   make(map[string]api.TableStatus, len(result.Tables)),
	}
	for table, counts := range result.Tables {
		resp.TablesStatus[table] = api.TableStatus{
			Pending:  counts.Pending,
			Failed:   counts.Failed,
			LastSync: counts.LastSyncedAt,
		}
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Retry handles POST /api/v1/sync/retry
// Requeues the site's FAILED entries as PENDING
func (h *SyncHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("site ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	requeued, err := h.engine.RetryFailed(ctx, siteID)
	if err != nil {
		h.logger.Error("retry failed", "error", err, "site_id", siteID)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.RetryResponse{
		Count:          len(requeued),
		RetriedChanges: make([]api.RetriedChange, 0, len(requeued)),
	}
	for _, change := range requeued {
		resp.RetriedChanges = append(resp.RetriedChanges, api.RetriedChange{
			RecordUUID: change.RecordUUID,
			TableName:  change.TableName,
			Operation:  string(change.Operation),
		})
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// FullSync handles POST /api/v1/sync/full
// Replays current record state into the change log for bootstrap
func (h *SyncHandler) FullSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("site ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.FullSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode full sync request", "error", err)
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateTableNames(req.Tables); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := h.engine.FullSync(ctx, siteID, req.Tables)

	resp := api.FullSyncResponse{Tables: make(map[string]api.TableFullSync, len(results))}
	for table, outcome := range results {
		resp.Tables[table] = api.TableFullSync{
			Status:        string(outcome.Status),
			Message:       outcome.Message,
			TotalRecords:  outcome.TotalRecords,
			SyncedRecords: outcome.SyncedRecords,
		}
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Cleanup handles POST /api/v1/sync/cleanup
// Prunes old SYNCED entries of the calling site
func (h *SyncHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("site ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode cleanup request", "error", err)
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	daysOld, err := validation.NormalizeCleanupDays(req.DaysOld)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.Cleanup(ctx, siteID, daysOld)
	if err != nil {
		h.logger.Error("cleanup failed", "error", err, "site_id", siteID)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.CleanupResponse{
		CleanupDate:    result.CleanupDate,
		DeletedRecords: result.DeletedRecords,
	}
	h.sendJSON(w, resp, http.StatusOK)
}
