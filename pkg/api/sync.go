package api

import "time"

// Change is one replicated mutation on the wire. It appears both in push
// requests (site -> server) and pull responses (server -> site).
type Change struct {
	CreatedAtOffline time.Time      `json:"created_at_offline"`   // origination time at the producing site
	UpdatedAt        time.Time      `json:"updated_at,omitempty"` // queue-entry cursor time, set by the server on pull
	Data             map[string]any `json:"data,omitempty"`       // intended record state, absent for DELETE
	TableName        string         `json:"table_name"`
	RecordUUID       string         `json:"record_uuid"`
	Operation        string         `json:"operation"` // CREATE | UPDATE | DELETE
	OriginSiteID     string         `json:"origin_site_id,omitempty"`
}

// PullResponse is the server's answer to GET /api/v1/sync/pull.
type PullResponse struct {
	SyncTimestamp time.Time `json:"sync_timestamp"` // server time, the caller's next cursor
	Changes       []Change  `json:"changes"`
	HasMore       bool      `json:"has_more"` // "try again" heuristic, not an exact remaining count
}

// PushRequest is a batch of changes a site sends to the server.
type PushRequest struct {
	Changes []Change `json:"changes"`
}

// ConflictDetail explains why a change was rejected as a conflict.
type ConflictDetail struct {
	LocalUpdatedAt    *time.Time `json:"local_updated_at,omitempty"`
	IncomingTimestamp time.Time  `json:"incoming_timestamp"`
	Reason            string     `json:"reason"` // "already_exists" or "local_newer"
}

// ChangeResult is the per-item outcome of a pushed change.
type ChangeResult struct {
	Conflict   *ConflictDetail `json:"conflict,omitempty"`
	RecordUUID string          `json:"record_uuid"`
	TableName  string          `json:"table_name"`
	Operation  string          `json:"operation"`
	Status     string          `json:"status"` // SUCCESS | CONFLICT | FAILED
	Message    string          `json:"message,omitempty"`
}

// PushResponse reports per-item outcomes for a push batch. Results holds
// exactly one entry per submitted change, in submission order. Reapplied
// holds the outcomes of server-side entries requeued by a retry and
// re-applied before this batch; they are never mixed into Results.
type PushResponse struct {
	SyncTimestamp time.Time      `json:"sync_timestamp"`
	Results       []ChangeResult `json:"results"`
	Reapplied     []ChangeResult `json:"reapplied,omitempty"`
}

// TableStatus aggregates queue health for one table.
type TableStatus struct {
	LastSync *time.Time `json:"last_sync,omitempty"`
	Pending  int        `json:"pending"`
	Failed   int        `json:"failed"`
}

// StatusResponse aggregates queue health for the calling site.
type StatusResponse struct {
	LastSync       *time.Time             `json:"last_sync,omitempty"`
	TablesStatus   map[string]TableStatus `json:"tables_status"`
	PendingChanges int                    `json:"pending_changes"`
	FailedChanges  int                    `json:"failed_changes"`
}

// RetriedChange identifies one requeued FAILED entry.
type RetriedChange struct {
	RecordUUID string `json:"record_uuid"`
	TableName  string `json:"table_name"`
	Operation  string `json:"operation"`
}

// RetryResponse lists the entries requeued by POST /api/v1/sync/retry.
type RetryResponse struct {
	RetriedChanges []RetriedChange `json:"retried_changes"`
	Count          int             `json:"count"`
}

// FullSyncRequest limits a bootstrap replay to a subset of tables.
type FullSyncRequest struct {
	Tables []string `json:"tables,omitempty"`
}

// TableFullSync reports the bootstrap outcome for one table.
type TableFullSync struct {
	Status        string `json:"status"` // SUCCESS | FAILED
	Message       string `json:"message,omitempty"`
	TotalRecords  int    `json:"total_records"`
	SyncedRecords int    `json:"synced_records"`
}

// FullSyncResponse reports per-table bootstrap outcomes.
type FullSyncResponse struct {
	Tables map[string]TableFullSync `json:"tables"`
}

// CleanupRequest prunes old synchronized queue entries.
type CleanupRequest struct {
	DaysOld int `json:"days_old,omitempty"` // 1..365, default 30
}

// CleanupResponse reports how many entries were pruned.
type CleanupResponse struct {
	CleanupDate    time.Time `json:"cleanup_date"`
	DeletedRecords int       `json:"deleted_records"`
}
