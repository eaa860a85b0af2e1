package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/internal/server/storage"
)

const changeColumns = `
	id, table_name, record_uuid, record_id, operation, payload,
	status, error_message, origin_site_id, created_at_offline, updated_at`

// Append stores a new change log entry and returns it with its assigned ID.
func (s *Storage) Append(ctx context.Context, change *models.ChangeRecord) (*models.ChangeRecord, error) {
	var payload sql.NullString
	if change.Payload != nil {
		data, err := json.Marshal(change.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO change_log (table_name, record_uuid, record_id, operation,
		                        payload, status, error_message, origin_site_id,
		                        created_at_offline, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		change.TableName,
		change.RecordUUID,
		nullableID(change.RecordID),
		string(change.Operation),
		payload,
		string(change.Status),
		nullableString(change.ErrorMessage),
		change.OriginSiteID,
		timeToMillis(change.CreatedAtOffline),
		timeToMillis(change.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert change: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get change id: %w", err)
	}

	stored := change.Clone()
	stored.ID = id
	return stored, nil
}

// ListSynced returns SYNCED entries not originated by excludeSite with
// updated_at strictly after since, oldest first, at most limit entries.
// The strict comparison is what keeps the pull cursor from re-delivering
// its boundary record.
func (s *Storage) ListSynced(ctx context.Context, excludeSite string, since time.Time, tables []string, limit int) ([]*models.ChangeRecord, error) {
	query := `
		SELECT ` + changeColumns + `
		FROM change_log
		WHERE status = ? AND origin_site_id != ? AND updated_at > ?
	`
	args := []any{string(models.StatusSynced), excludeSite, timeToMillis(since)}

	if len(tables) > 0 {
		query += ` AND table_name IN (?` + strings.Repeat(", ?", len(tables)-1) + `)`
		for _, table := range tables {
			args = append(args, table)
		}
	}

	query += ` ORDER BY updated_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	return s.queryChanges(ctx, query, args...)
}

// ListPending returns the site's PENDING entries, oldest first.
func (s *Storage) ListPending(ctx context.Context, siteID string) ([]*models.ChangeRecord, error) {
	query := `
		SELECT ` + changeColumns + `
		FROM change_log
		WHERE origin_site_id = ? AND status = ?
		ORDER BY id ASC
	`
	return s.queryChanges(ctx, query, siteID, string(models.StatusPending))
}

// UpdateStatus transitions one entry and records or clears its error message.
// Returns ErrChangeNotFound if the entry doesn't exist.
func (s *Storage) UpdateStatus(ctx context.Context, id int64, status models.ChangeStatus, errorMessage string) error {
	query := `
		UPDATE change_log
		SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(status),
		nullableString(errorMessage),
		timeToMillis(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update change status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrChangeNotFound
	}

	return nil
}

// RequeueFailed flips the site's FAILED entries back to PENDING, clearing
// error messages, and returns the requeued entries.
func (s *Storage) RequeueFailed(ctx context.Context, siteID string) ([]*models.ChangeRecord, error) {
	// Сначала собираем список, потом обновляем: после UPDATE
	// отобрать бывшие FAILED записи уже не получится.
	selectQuery := `
		SELECT ` + changeColumns + `
		FROM change_log
		WHERE origin_site_id = ? AND status = ?
		ORDER BY id ASC
	`
	failed, err := s.queryChanges(ctx, selectQuery, siteID, string(models.StatusFailed))
	if err != nil {
		return nil, err
	}
	if len(failed) == 0 {
		return nil, nil
	}

	updateQuery := `
		UPDATE change_log
		SET status = ?, error_message = NULL, updated_at = ?
		WHERE origin_site_id = ? AND status = ?
	`
	_, err = s.db.ExecContext(ctx, updateQuery,
		string(models.StatusPending),
		timeToMillis(time.Now()),
		siteID,
		string(models.StatusFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue changes: %w", err)
	}

	for _, change := range failed {
		change.Status = models.StatusPending
		change.ErrorMessage = ""
	}

	return failed, nil
}

// DeleteSyncedBefore removes the site's SYNCED entries last updated before
// cutoff. PENDING, FAILED and CONFLICT entries are never touched.
func (s *Storage) DeleteSyncedBefore(ctx context.Context, siteID string, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM change_log
		WHERE origin_site_id = ? AND status = ? AND updated_at < ?
	`

	result, err := s.db.ExecContext(ctx, query,
		siteID,
		string(models.StatusSynced),
		timeToMillis(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete synced changes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// TableCounts aggregates pending/failed counts and the last synced time per
// table for one site.
func (s *Storage) TableCounts(ctx context.Context, siteID string) (map[string]models.TableSyncCounts, error) {
	query := `
		SELECT table_name,
		       SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'FAILED' THEN 1 ELSE 0 END),
		       MAX(CASE WHEN status = 'SYNCED' THEN updated_at ELSE NULL END)
		FROM change_log
		WHERE origin_site_id = ?
		GROUP BY table_name
	`

	rows, err := s.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query table counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]models.TableSyncCounts)
	for rows.Next() {
		var table string
		var c models.TableSyncCounts
		var lastSynced sql.NullInt64

		if err := rows.Scan(&table, &c.Pending, &c.Failed, &lastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan table counts: %w", err)
		}

		if lastSynced.Valid {
			t := millisToTime(lastSynced.Int64)
			c.LastSyncedAt = &t
		}
		counts[table] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return counts, nil
}

// queryChanges runs a change_log select and scans the result set.
func (s *Storage) queryChanges(ctx context.Context, query string, args ...any) ([]*models.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var changes []*models.ChangeRecord
	for rows.Next() {
		change, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return changes, nil
}

func scanChange(rows *sql.Rows) (*models.ChangeRecord, error) {
	change := &models.ChangeRecord{}
	var recordID sql.NullInt64
	var operation, status string
	var payload, errorMessage sql.NullString
	var createdAtOffline, updatedAt int64

	err := rows.Scan(
		&change.ID,
		&change.TableName,
		&change.RecordUUID,
		&recordID,
		&operation,
		&payload,
		&status,
		&errorMessage,
		&change.OriginSiteID,
		&createdAtOffline,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	change.Operation = models.Operation(operation)
	change.Status = models.ChangeStatus(status)
	change.CreatedAtOffline = millisToTime(createdAtOffline)
	change.UpdatedAt = millisToTime(updatedAt)

	if recordID.Valid {
		change.RecordID = &recordID.Int64
	}
	if errorMessage.Valid {
		change.ErrorMessage = errorMessage.String
	}
	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &change.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	return change, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
