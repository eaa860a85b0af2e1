package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

// memRecordStore is an in-memory RecordStore for tests. It mirrors the
// contract of the real stores: Find returns (nil, nil) for absent and
// soft-deleted rows, Insert resurrects dead rows.
type memRecordStore struct {
	rows    map[string]*models.Record
	findErr error
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{rows: make(map[string]*models.Record)}
}

func memKey(table, uuid string) string {
	return table + "/" + uuid
}

func (m *memRecordStore) Find(ctx context.Context, table, uuid string) (*models.Record, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	row, ok := m.rows[memKey(table, uuid)]
	if !ok || row.Deleted() {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (m *memRecordStore) Insert(ctx context.Context, record *models.Record) error {
	key := memKey(record.TableName, record.UUID)
	if row, ok := m.rows[key]; ok && !row.Deleted() {
		return fmt.Errorf("record %s already exists", key)
	}
	clone := *record
	clone.DeletedAt = nil
	m.rows[key] = &clone
	return nil
}

func (m *memRecordStore) Update(ctx context.Context, record *models.Record) error {
	key := memKey(record.TableName, record.UUID)
	row, ok := m.rows[key]
	if !ok || row.Deleted() {
		return fmt.Errorf("record %s not found", key)
	}
	clone := *record
	m.rows[key] = &clone
	return nil
}

func (m *memRecordStore) SoftDelete(ctx context.Context, table, uuid string, at time.Time) error {
	row, ok := m.rows[memKey(table, uuid)]
	if !ok || row.Deleted() {
		return nil
	}
	row.DeletedAt = &at
	row.UpdatedAt = at
	return nil
}

func (m *memRecordStore) List(ctx context.Context, table string) ([]*models.Record, error) {
	var result []*models.Record
	for key, row := range m.rows {
		if !strings.HasPrefix(key, table+"/") || row.Deleted() {
			continue
		}
		clone := *row
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UUID < result[j].UUID })
	return result, nil
}

// raw returns the stored row including soft-deleted ones.
func (m *memRecordStore) raw(table, uuid string) *models.Record {
	return m.rows[memKey(table, uuid)]
}

// memChangeLog is an in-memory ChangeLog for engine tests.
type memChangeLog struct {
	entries   []*models.ChangeRecord
	nextID    int64
	appendErr error
}

func newMemChangeLog() *memChangeLog {
	return &memChangeLog{}
}

func (m *memChangeLog) Append(ctx context.Context, change *models.ChangeRecord) (*models.ChangeRecord, error) {
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.nextID++
	clone := change.Clone()
	clone.ID = m.nextID
	m.entries = append(m.entries, clone)
	return clone.Clone(), nil
}

func (m *memChangeLog) ListSynced(ctx context.Context, excludeSite string, since time.Time, tables []string, limit int) ([]*models.ChangeRecord, error) {
	wanted := func(table string) bool {
		if len(tables) == 0 {
			return true
		}
		for _, t := range tables {
			if t == table {
				return true
			}
		}
		return false
	}

	var result []*models.ChangeRecord
	for _, entry := range m.entries {
		if entry.Status != models.StatusSynced || entry.OriginSiteID == excludeSite {
			continue
		}
		if !entry.UpdatedAt.After(since) || !wanted(entry.TableName) {
			continue
		}
		result = append(result, entry.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.Before(result[j].UpdatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memChangeLog) ListPending(ctx context.Context, siteID string) ([]*models.ChangeRecord, error) {
	var result []*models.ChangeRecord
	for _, entry := range m.entries {
		if entry.Status == models.StatusPending && entry.OriginSiteID == siteID {
			result = append(result, entry.Clone())
		}
	}
	return result, nil
}

func (m *memChangeLog) UpdateStatus(ctx context.Context, id int64, status models.ChangeStatus, errorMessage string) error {
	for _, entry := range m.entries {
		if entry.ID == id {
			entry.Status = status
			entry.ErrorMessage = errorMessage
			return nil
		}
	}
	return fmt.Errorf("change %d not found", id)
}

func (m *memChangeLog) RequeueFailed(ctx context.Context, siteID string) ([]*models.ChangeRecord, error) {
	var requeued []*models.ChangeRecord
	for _, entry := range m.entries {
		if entry.Status == models.StatusFailed && entry.OriginSiteID == siteID {
			entry.Status = models.StatusPending
			entry.ErrorMessage = ""
			requeued = append(requeued, entry.Clone())
		}
	}
	return requeued, nil
}

func (m *memChangeLog) DeleteSyncedBefore(ctx context.Context, siteID string, cutoff time.Time) (int, error) {
	var kept []*models.ChangeRecord
	deleted := 0
	for _, entry := range m.entries {
		if entry.Status == models.StatusSynced && entry.OriginSiteID == siteID && entry.UpdatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return deleted, nil
}

func (m *memChangeLog) TableCounts(ctx context.Context, siteID string) (map[string]models.TableSyncCounts, error) {
	counts := make(map[string]models.TableSyncCounts)
	for _, entry := range m.entries {
		if entry.OriginSiteID != siteID {
			continue
		}
		c := counts[entry.TableName]
		switch entry.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusFailed:
			c.Failed++
		case models.StatusSynced:
			at := entry.UpdatedAt
			if c.LastSyncedAt == nil || at.After(*c.LastSyncedAt) {
				c.LastSyncedAt = &at
			}
		}
		counts[entry.TableName] = c
	}
	return counts, nil
}

// byID finds a raw change log entry.
func (m *memChangeLog) byID(id int64) *models.ChangeRecord {
	for _, entry := range m.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}
