package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/models"
)

// recordKey namespaces records by table within one bucket
func recordKey(table, uuid string) []byte {
	return []byte(table + "/" + uuid)
}

// Find returns the live record or (nil, nil) when it is absent or
// soft-deleted. The applier relies on this contract.
func (s *Storage) Find(ctx context.Context, table, uuid string) (*models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var record *models.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return nil
		}

		data := bucket.Get(recordKey(table, uuid))
		if data == nil {
			return nil
		}

		var r models.Record
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		if !r.Deleted() {
			record = &r
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return record, nil
}

// Insert stores a new record. A soft-deleted row under the same key is
// resurrected; a live one makes the insert fail.
func (s *Storage) Insert(ctx context.Context, record *models.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return fmt.Errorf("records bucket not found")
		}

		key := recordKey(record.TableName, record.UUID)
		if data := bucket.Get(key); data != nil {
			var existing models.Record
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			if !existing.Deleted() {
				return fmt.Errorf("record %s/%s already exists", record.TableName, record.UUID)
			}
		}

		return s.putRecord(bucket, key, record)
	})
}

// Update replaces an existing live record
func (s *Storage) Update(ctx context.Context, record *models.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return storage.ErrRecordNotFound
		}

		key := recordKey(record.TableName, record.UUID)
		data := bucket.Get(key)
		if data == nil {
			return storage.ErrRecordNotFound
		}

		var existing models.Record
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		if existing.Deleted() {
			return storage.ErrRecordNotFound
		}

		return s.putRecord(bucket, key, record)
	})
}

// SoftDelete marks a record deleted at the given time.
// Deleting an absent record is not an error.
func (s *Storage) SoftDelete(ctx context.Context, table, uuid string, at time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return nil
		}

		key := recordKey(table, uuid)
		data := bucket.Get(key)
		if data == nil {
			return nil
		}

		var record models.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		record.DeletedAt = &at
		record.UpdatedAt = at

		return s.putRecord(bucket, key, &record)
	})
}

// List returns all live records of a table ordered by update time
func (s *Storage) List(ctx context.Context, table string) ([]*models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var records []*models.Record
	prefix := []byte(table + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return nil
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = cursor.Next() {
			var record models.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			if !record.Deleted() {
				records = append(records, &record)
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.Before(records[j].UpdatedAt)
	})

	return records, nil
}

func (s *Storage) putRecord(bucket *bbolt.Bucket, key []byte, record *models.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := bucket.Put(key, data); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}
