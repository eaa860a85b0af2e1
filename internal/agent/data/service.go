package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/internal/validation"
)

// Service определяет интерфейс локальных операций над записями.
// Каждая мутация пишется в локальное хранилище и сразу встает в очередь
// на отправку как PENDING изменение.
type Service interface {
	// Set creates a record when it is absent and updates it otherwise.
	// Returns the record UUID (generated when empty).
	Set(ctx context.Context, table, recordUUID string, payload map[string]any) (string, error)

	// Delete soft-deletes a record and queues the DELETE change.
	// Deleting an absent record is not an error.
	Delete(ctx context.Context, table, recordUUID string) error

	// Get returns the live record or storage.ErrRecordNotFound
	Get(ctx context.Context, table, recordUUID string) (*models.Record, error)

	// List returns all live records of a table
	List(ctx context.Context, table string) ([]*models.Record, error)
}

// service handles agent-side record operations
type service struct {
	records storage.RecordStorage
	queue   storage.QueueStorage
	siteID  string
	now     func() time.Time
}

// NewService creates a new data service bound to the agent's site
func NewService(records storage.RecordStorage, queue storage.QueueStorage, siteID string) Service {
	return &service{
		records: records,
		queue:   queue,
		siteID:  siteID,
		now:     time.Now,
	}
}

// Set creates or updates a record and queues the change
func (s *service) Set(ctx context.Context, table, recordUUID string, payload map[string]any) (string, error) {
	if err := validation.ValidateTableName(table); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("payload cannot be empty")
	}

	if recordUUID == "" {
		recordUUID = uuid.New().String()
	} else if err := validation.ValidateRecordUUID(recordUUID); err != nil {
		return "", err
	}

	existing, err := s.records.Find(ctx, table, recordUUID)
	if err != nil {
		return "", fmt.Errorf("failed to look up record: %w", err)
	}

	now := s.now().UTC()
	record := &models.Record{
		TableName:    table,
		UUID:         recordUUID,
		Payload:      payload,
		OriginSiteID: s.siteID,
		UpdatedAt:    now,
	}

	op := models.OperationCreate
	if existing != nil {
		op = models.OperationUpdate
		record.RecordID = existing.RecordID
		if err := s.records.Update(ctx, record); err != nil {
			return "", fmt.Errorf("failed to update record: %w", err)
		}
	} else {
		if err := s.records.Insert(ctx, record); err != nil {
			return "", fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := s.enqueue(ctx, table, recordUUID, op, payload, now); err != nil {
		return "", err
	}

	return recordUUID, nil
}

// Delete soft-deletes a record and queues the change
func (s *service) Delete(ctx context.Context, table, recordUUID string) error {
	if err := validation.ValidateTableName(table); err != nil {
		return err
	}
	if err := validation.ValidateRecordUUID(recordUUID); err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.records.SoftDelete(ctx, table, recordUUID, now); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return s.enqueue(ctx, table, recordUUID, models.OperationDelete, nil, now)
}

// Get returns the live record
func (s *service) Get(ctx context.Context, table, recordUUID string) (*models.Record, error) {
	if err := validation.ValidateTableName(table); err != nil {
		return nil, err
	}

	record, err := s.records.Find(ctx, table, recordUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up record: %w", err)
	}
	if record == nil {
		return nil, storage.ErrRecordNotFound
	}
	return record, nil
}

// List returns all live records of a table
func (s *service) List(ctx context.Context, table string) ([]*models.Record, error) {
	if err := validation.ValidateTableName(table); err != nil {
		return nil, err
	}
	return s.records.List(ctx, table)
}

func (s *service) enqueue(ctx context.Context, table, recordUUID string, op models.Operation, payload map[string]any, at time.Time) error {
	change := &models.ChangeRecord{
		TableName:        table,
		RecordUUID:       recordUUID,
		Operation:        op,
		Payload:          payload,
		Status:           models.StatusPending,
		OriginSiteID:     s.siteID,
		CreatedAtOffline: at,
		UpdatedAt:        at,
	}

	if _, err := s.queue.Enqueue(ctx, change); err != nil {
		return fmt.Errorf("failed to queue change: %w", err)
	}
	return nil
}
