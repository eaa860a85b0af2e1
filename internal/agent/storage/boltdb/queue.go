package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/models"
)

// queueKey keeps bbolt's byte-wise key order equal to enqueue order
func queueKey(id int64) []byte {
	return []byte(fmt.Sprintf("%020d", id))
}

// Enqueue appends a change to the queue and assigns its local ID
func (s *Storage) Enqueue(ctx context.Context, change *models.ChangeRecord) (*models.ChangeRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	stored := change.Clone()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		stored.ID = int64(seq)

		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal change: %w", err)
		}

		if err := bucket.Put(queueKey(stored.ID), data); err != nil {
			return fmt.Errorf("failed to save change: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return stored, nil
}

// ListByStatus returns queued changes with the given status in enqueue order
func (s *Storage) ListByStatus(ctx context.Context, status models.ChangeStatus) ([]*models.ChangeRecord, error) {
	return s.listQueue(func(change *models.ChangeRecord) bool {
		return change.Status == status
	})
}

// ListAll returns every queued change in enqueue order
func (s *Storage) ListAll(ctx context.Context) ([]*models.ChangeRecord, error) {
	return s.listQueue(func(*models.ChangeRecord) bool { return true })
}

func (s *Storage) listQueue(keep func(*models.ChangeRecord) bool) ([]*models.ChangeRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var changes []*models.ChangeRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var change models.ChangeRecord
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			if keep(&change) {
				changes = append(changes, &change)
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	return changes, nil
}

// UpdateStatus transitions a queued change and records an error message
func (s *Storage) UpdateStatus(ctx context.Context, id int64, status models.ChangeStatus, errorMessage string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return storage.ErrChangeNotFound
		}

		key := queueKey(id)
		data := bucket.Get(key)
		if data == nil {
			return storage.ErrChangeNotFound
		}

		var change models.ChangeRecord
		if err := json.Unmarshal(data, &change); err != nil {
			return fmt.Errorf("failed to unmarshal change: %w", err)
		}

		change.Status = status
		change.ErrorMessage = errorMessage
		change.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&change)
		if err != nil {
			return fmt.Errorf("failed to marshal change: %w", err)
		}

		if err := bucket.Put(key, updated); err != nil {
			return fmt.Errorf("failed to save change: %w", err)
		}

		return nil
	})
}

// DeleteSyncedBefore removes SYNCED changes older than cutoff
func (s *Storage) DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return nil
		}

		// Собираем ключи заранее: удалять внутри ForEach нельзя
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var change models.ChangeRecord
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			if change.Status == models.StatusSynced && change.UpdatedAt.Before(cutoff) {
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range stale {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to delete change: %w", err)
			}
			deleted++
		}

		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to delete synced changes: %w", err)
	}

	return deleted, nil
}

// Counts returns the number of queued changes per status
func (s *Storage) Counts(ctx context.Context) (map[models.ChangeStatus]int, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	counts := make(map[models.ChangeStatus]int)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var change models.ChangeRecord
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			counts[change.Status]++
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to count queue: %w", err)
	}

	return counts, nil
}
