package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitesync/internal/models"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func testRecord(table string, at time.Time) *models.Record {
	return &models.Record{
		TableName:    table,
		UUID:         uuid.New().String(),
		Payload:      map[string]any{"primer_nombre": "Ana", "edad": float64(34)},
		OriginSiteID: "clinic-north",
		UpdatedAt:    at,
	}
}

func TestRecordStorage_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := testRecord("patients", at)

	require.NoError(t, s.Insert(ctx, record))

	found, err := s.Find(ctx, "patients", record.UUID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, record.UUID, found.UUID)
	assert.Equal(t, "Ana", found.Payload["primer_nombre"])
	assert.Equal(t, float64(34), found.Payload["edad"])
	assert.Equal(t, "clinic-north", found.OriginSiteID)
	assert.WithinDuration(t, at, found.UpdatedAt, 0)
	assert.Nil(t, found.DeletedAt)
}

func TestRecordStorage_Find_Absent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	found, err := s.Find(ctx, "patients", uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRecordStorage_Insert_DuplicateLiveRow(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	record := testRecord("patients", time.Now())
	require.NoError(t, s.Insert(ctx, record))

	err := s.Insert(ctx, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRecordStorage_Insert_ResurrectsDeletedRow(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := testRecord("patients", at)
	require.NoError(t, s.Insert(ctx, record))
	require.NoError(t, s.SoftDelete(ctx, "patients", record.UUID, at.Add(time.Minute)))

	// Мертвая строка под тем же ключом не мешает повторному созданию
	record.Payload = map[string]any{"primer_nombre": "Anna"}
	record.UpdatedAt = at.Add(2 * time.Minute)
	require.NoError(t, s.Insert(ctx, record))

	found, err := s.Find(ctx, "patients", record.UUID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Anna", found.Payload["primer_nombre"])
	assert.Nil(t, found.DeletedAt)
}

func TestRecordStorage_Update(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := testRecord("patients", at)
	require.NoError(t, s.Insert(ctx, record))

	record.Payload = map[string]any{"primer_nombre": "Anna"}
	record.UpdatedAt = at.Add(time.Hour)
	require.NoError(t, s.Update(ctx, record))

	found, err := s.Find(ctx, "patients", record.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", found.Payload["primer_nombre"])
	assert.WithinDuration(t, at.Add(time.Hour), found.UpdatedAt, 0)
}

func TestRecordStorage_Update_AbsentRow(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	record := testRecord("patients", time.Now())
	err := s.Update(ctx, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordStorage_SoftDelete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := testRecord("patients", at)
	require.NoError(t, s.Insert(ctx, record))

	require.NoError(t, s.SoftDelete(ctx, "patients", record.UUID, at.Add(time.Minute)))

	// Для Find запись теперь отсутствует
	found, err := s.Find(ctx, "patients", record.UUID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// Повторное удаление уже мертвой строки — ошибка на уровне storage;
	// apply-слой до нее не доходит, он отвечает NOOP сам
	err = s.SoftDelete(ctx, "patients", record.UUID, at.Add(2*time.Minute))
	require.Error(t, err)
}

func TestRecordStorage_List(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	older := testRecord("patients", base)
	newer := testRecord("patients", base.Add(time.Hour))
	other := testRecord("invoices", base)
	deleted := testRecord("patients", base.Add(2*time.Hour))

	require.NoError(t, s.Insert(ctx, newer))
	require.NoError(t, s.Insert(ctx, older))
	require.NoError(t, s.Insert(ctx, other))
	require.NoError(t, s.Insert(ctx, deleted))
	require.NoError(t, s.SoftDelete(ctx, "patients", deleted.UUID, base.Add(3*time.Hour)))

	records, err := s.List(ctx, "patients")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Старые раньше новых, удаленные и чужие таблицы пропущены
	assert.Equal(t, older.UUID, records[0].UUID)
	assert.Equal(t, newer.UUID, records[1].UUID)
}
