package models

import "time"

// Record is the generic, table-agnostic view of a logical record as held by
// a record store. The payload stays an opaque field/value map at this layer;
// schema validation belongs to the collaborator that owns the table.
type Record struct {
	UpdatedAt    time.Time      `json:"updated_at"` // last local modification time, compared against incoming origin times
	Payload      map[string]any `json:"payload"`
	TableName    string         `json:"table_name"`
	UUID         string         `json:"uuid"`
	OriginSiteID string         `json:"origin_site_id"`      // site that created the record, empty for central/catalog rows
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"` // soft-deletion marker
	RecordID     *int64         `json:"record_id,omitempty"`
}

// Deleted reports whether the record is soft-deleted.
func (r *Record) Deleted() bool {
	return r.DeletedAt != nil
}

// SyncTable describes one replicated table.
type SyncTable struct {
	Name      string
	SiteOwned bool // rows carry an owning site; full sync skips the requester's own rows
}

// SyncTables is the registry of tables the engine replicates. Catalog tables
// (no per-site ownership) are replayed in full during bootstrap.
var SyncTables = []SyncTable{
	{Name: "patients", SiteOwned: true},
	{Name: "appointments", SiteOwned: true},
	{Name: "consultations", SiteOwned: true},
	{Name: "invoices", SiteOwned: true},
	{Name: "payments", SiteOwned: true},
	{Name: "signatures", SiteOwned: true},
	{Name: "consultation_types", SiteOwned: false},
	{Name: "tariffs", SiteOwned: false},
}

// SyncTableNames returns the names of all replicated tables.
func SyncTableNames() []string {
	names := make([]string, 0, len(SyncTables))
	for _, t := range SyncTables {
		names = append(names, t.Name)
	}
	return names
}

// LookupSyncTable finds a replicated table by name.
func LookupSyncTable(name string) (SyncTable, bool) {
	for _, t := range SyncTables {
		if t.Name == name {
			return t, true
		}
	}
	return SyncTable{}, false
}
