package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

// Find locates the current live row for (table, uuid).
// Soft-deleted rows count as absent: it returns (nil, nil) for them, same as
// for rows that never existed.
func (s *Storage) Find(ctx context.Context, table, uuid string) (*models.Record, error) {
	query := `
		SELECT table_name, record_uuid, record_id, payload,
		       origin_site_id, updated_at, deleted_at
		FROM records
		WHERE table_name = ? AND record_uuid = ? AND deleted_at IS NULL
	`

	record, err := s.scanRecord(s.db.QueryRowContext(ctx, query, table, uuid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find record: %w", err)
	}

	return record, nil
}

// Insert creates a new row. A soft-deleted row under the same key is
// resurrected: UPDATE-as-create must succeed even when a dead row remains
// from an earlier delete.
func (s *Storage) Insert(ctx context.Context, record *models.Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO records (table_name, record_uuid, record_id, payload,
		                     origin_site_id, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (table_name, record_uuid) DO UPDATE SET
			record_id = excluded.record_id,
			payload = excluded.payload,
			origin_site_id = excluded.origin_site_id,
			updated_at = excluded.updated_at,
			deleted_at = NULL
		WHERE records.deleted_at IS NOT NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		record.TableName,
		record.UUID,
		nullableID(record.RecordID),
		string(payload),
		record.OriginSiteID,
		timeToMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Live row already present under this key. The applier's conflict
		// check should have caught this; report it rather than overwrite.
		return fmt.Errorf("record %s/%s already exists", record.TableName, record.UUID)
	}

	return nil
}

// Update replaces the payload and modification time of an existing live row.
func (s *Storage) Update(ctx context.Context, record *models.Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		UPDATE records
		SET payload = ?, updated_at = ?
		WHERE table_name = ? AND record_uuid = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		string(payload),
		timeToMillis(record.UpdatedAt),
		record.TableName,
		record.UUID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("record %s/%s not found", record.TableName, record.UUID)
	}

	return nil
}

// SoftDelete marks a live row deleted without removing it. The record keeps
// its uuid for the rest of its life, so a later change can still address it.
func (s *Storage) SoftDelete(ctx context.Context, table, uuid string, at time.Time) error {
	query := `
		UPDATE records
		SET deleted_at = ?, updated_at = ?
		WHERE table_name = ? AND record_uuid = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		timeToMillis(at),
		timeToMillis(at),
		table,
		uuid,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("record %s/%s not found", table, uuid)
	}

	return nil
}

// List returns all live rows of a table, oldest modification first.
// Used by full sync to replay a table for a bootstrapping site.
func (s *Storage) List(ctx context.Context, table string) ([]*models.Record, error) {
	query := `
		SELECT table_name, record_uuid, record_id, payload,
		       origin_site_id, updated_at, deleted_at
		FROM records
		WHERE table_name = ? AND deleted_at IS NULL
		ORDER BY updated_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*models.Record
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanRecord(row rowScanner) (*models.Record, error) {
	record := &models.Record{}
	var recordID sql.NullInt64
	var payload string
	var updatedAt int64
	var deletedAt sql.NullInt64

	err := row.Scan(
		&record.TableName,
		&record.UUID,
		&recordID,
		&payload,
		&record.OriginSiteID,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &record.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	record.UpdatedAt = millisToTime(updatedAt)
	if recordID.Valid {
		record.RecordID = &recordID.Int64
	}
	if deletedAt.Valid {
		t := millisToTime(deletedAt.Int64)
		record.DeletedAt = &t
	}

	return record, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
