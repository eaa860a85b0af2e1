package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/sitesync/internal/engine"
	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/internal/validation"
	"github.com/iudanet/sitesync/pkg/api"
)

// contextKey is the type for request context keys
type contextKey string

const (
	// SiteIDKey holds the authenticated site's ID in the request context
	SiteIDKey contextKey = "site_id"
	// SiteNameKey holds the authenticated site's name in the request context
	SiteNameKey contextKey = "site_name"
)

// GetSiteID extracts the authenticated site ID from the request context
func GetSiteID(ctx context.Context) (string, bool) {
	siteID, ok := ctx.Value(SiteIDKey).(string)
	return siteID, ok
}

// GetSiteName extracts the authenticated site name from the request context
func GetSiteName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(SiteNameKey).(string)
	return name, ok
}

// SyncEngine is the engine surface the sync handlers depend on
type SyncEngine interface {
	Pull(ctx context.Context, siteID string, since time.Time, tables []string, limit int) (*engine.PullResult, error)
	Push(ctx context.Context, siteID string, incoming []*models.ChangeRecord) (*engine.PushResult, error)
	FullSync(ctx context.Context, siteID string, tables []string) map[string]engine.TableBootstrap
	Status(ctx context.Context, siteID string) (*engine.StatusResult, error)
	RetryFailed(ctx context.Context, siteID string) ([]*models.ChangeRecord, error)
	Cleanup(ctx context.Context, siteID string, daysOld int) (*engine.CleanupResult, error)
}

// SyncHandler handles the synchronization endpoints
type SyncHandler struct {
	logger *slog.Logger
	engine SyncEngine
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, syncEngine SyncEngine) *SyncHandler {
	return &SyncHandler{
		logger: logger,
		engine: syncEngine,
	}
}

// Pull handles GET /api/v1/sync/pull?since=&tables=&limit=
// Returns a bounded page of changes produced by other sites
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("site ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var since time.Time
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, sinceStr)
		if err != nil {
			h.logger.Warn("invalid since parameter", "since", sinceStr, "error", err)
			h.sendError(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	var tables []string
	if tablesStr := r.URL.Query().Get("tables"); tablesStr != "" {
		tables = strings.Split(tablesStr, ",")
	}
	if err := validation.ValidateTableNames(tables); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			h.sendError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	limit, err := validation.NormalizePullLimit(limit)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.Pull(ctx, siteID, since, tables, limit)
	if err != nil {
		h.logger.Error("pull failed", "error", err, "site_id", siteID)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.PullResponse{
		Changes:       make([]api.Change, 0, len(result.Changes)),
		SyncTimestamp: result.SyncTimestamp,
		HasMore:       result.HasMore,
	}
	for _, change := range result.Changes {
		resp.Changes = append(resp.Changes, changeToAPI(change))
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Push handles POST /api/v1/sync/push
// Applies a batch of changes from the calling site
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID, ok := GetSiteID(ctx)
	if !ok {
		h.logger.Error("site ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode push request", "error", err)
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Shape validation happens before anything is queued or applied:
	// a malformed batch is rejected whole.
	incoming := make([]*models.ChangeRecord, 0, len(req.Changes))
	for i, change := range req.Changes {
		record, err := changeFromAPI(change)
		if err != nil {
			h.logger.Warn("invalid change in push request", "index", i, "error", err)
			h.sendError(w, fmt.Sprintf("change %d: %v", i, err), http.StatusBadRequest)
			return
		}
		incoming = append(incoming, record)
	}

	result, err := h.engine.Push(ctx, siteID, incoming)
	if err != nil {
		h.logger.Error("push failed", "error", err, "site_id", siteID)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.PushResponse{
		Results:       make([]api.ChangeResult, 0, len(result.Items)),
		SyncTimestamp: result.SyncTimestamp,
	}
	for _, item := range result.Items {
		resp.Results = append(resp.Results, resultToAPI(item))
	}
	for _, item := range result.Reapplied {
		resp.Reapplied = append(resp.Reapplied, resultToAPI(item))
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// changeToAPI converts a change log entry to its wire form
func changeToAPI(change *models.ChangeRecord) api.Change {
	return api.Change{
		TableName:        change.TableName,
		RecordUUID:       change.RecordUUID,
		Operation:        string(change.Operation),
		Data:             change.Payload,
		OriginSiteID:     change.OriginSiteID,
		CreatedAtOffline: change.CreatedAtOffline,
		UpdatedAt:        change.UpdatedAt,
	}
}

// changeFromAPI validates one pushed change and converts it to a model.
// The payload stays an opaque map; its schema belongs to the table's owner.
func changeFromAPI(change api.Change) (*models.ChangeRecord, error) {
	if err := validation.ValidateTableName(change.TableName); err != nil {
		return nil, err
	}
	if err := validation.ValidateRecordUUID(change.RecordUUID); err != nil {
		return nil, err
	}
	if err := validation.ValidateOperation(change.Operation); err != nil {
		return nil, err
	}
	if change.CreatedAtOffline.IsZero() {
		return nil, fmt.Errorf("created_at_offline is required")
	}

	op := models.Operation(change.Operation)
	if op != models.OperationDelete && len(change.Data) == 0 {
		return nil, fmt.Errorf("data is required for %s", op)
	}

	return &models.ChangeRecord{
		TableName:        change.TableName,
		RecordUUID:       change.RecordUUID,
		Operation:        op,
		Payload:          change.Data,
		Status:           models.StatusPending,
		CreatedAtOffline: change.CreatedAtOffline,
	}, nil
}

// resultToAPI converts a per-item push outcome to its wire form
func resultToAPI(item engine.PushItem) api.ChangeResult {
	result := api.ChangeResult{
		RecordUUID: item.Change.RecordUUID,
		TableName:  item.Change.TableName,
		Operation:  string(item.Change.Operation),
		Status:     string(item.Result.Status),
		Message:    item.Result.Message,
	}
	if item.Result.Conflict != nil {
		result.Conflict = &api.ConflictDetail{
			Reason:            item.Result.Conflict.Reason,
			LocalUpdatedAt:    item.Result.Conflict.LocalUpdatedAt,
			IncomingTimestamp: item.Result.Conflict.IncomingTimestamp,
		}
	}
	return result
}

// sendJSON writes a JSON response with the given status code
func (h *SyncHandler) sendJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// sendError writes a JSON error response
func (h *SyncHandler) sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := api.ErrorResponse{Error: http.StatusText(status), Message: message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
