package models

import "time"

// Operation is the kind of mutation a ChangeRecord carries.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// ChangeStatus is the lifecycle state of a queued change.
//
// Allowed transitions: PENDING -> {SYNCED, FAILED, CONFLICT} when the change
// is applied, and FAILED -> PENDING on explicit retry. SYNCED and CONFLICT
// are terminal.
type ChangeStatus string

const (
	StatusPending  ChangeStatus = "PENDING"
	StatusSynced   ChangeStatus = "SYNCED"
	StatusFailed   ChangeStatus = "FAILED"
	StatusConflict ChangeStatus = "CONFLICT"
)

// ChangeRecord describes one intended mutation to a logical record.
// It is the unit of replication between sites and the central store.
type ChangeRecord struct {
	CreatedAtOffline time.Time      `json:"created_at_offline"` // site-local time of the mutation, used for conflict comparison
	UpdatedAt        time.Time      `json:"updated_at"`         // last status change of this queue entry, used as the pull cursor
	Payload          map[string]any `json:"payload,omitempty"`  // intended record state, absent for DELETE
	ID               int64          `json:"id"`                 // queue entry identifier, local to the store that holds it
	TableName        string         `json:"table_name"`
	RecordUUID       string         `json:"record_uuid"` // stable identity of the logical record across sites
	Operation        Operation      `json:"operation"`
	Status           ChangeStatus   `json:"status"`
	ErrorMessage     string         `json:"error_message,omitempty"` // set only when Status is FAILED
	OriginSiteID     string         `json:"origin_site_id"`
	RecordID         *int64         `json:"record_id,omitempty"` // legacy site-local surrogate key, never an identity
}

// TableSyncCounts aggregates change-queue health for one table.
type TableSyncCounts struct {
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	Pending      int        `json:"pending"`
	Failed       int        `json:"failed"`
}

// Clone returns a deep copy of the change record.
func (c *ChangeRecord) Clone() *ChangeRecord {
	clone := *c
	if c.Payload != nil {
		clone.Payload = make(map[string]any, len(c.Payload))
		for k, v := range c.Payload {
			clone.Payload[k] = v
		}
	}
	if c.RecordID != nil {
		id := *c.RecordID
		clone.RecordID = &id
	}
	return &clone
}
