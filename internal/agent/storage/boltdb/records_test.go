package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/models"
)

func testLocalRecord(uuid string) *models.Record {
	return &models.Record{
		TableName:    "patients",
		UUID:         uuid,
		Payload:      map[string]any{"primer_nombre": "Ana", "edad": float64(34)},
		OriginSiteID: "clinic-north",
		UpdatedAt:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestStorage_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	record := testLocalRecord("p-1")
	require.NoError(t, store.Insert(ctx, record))

	got, err := store.Find(ctx, "patients", "p-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.Payload, got.Payload)
	assert.Equal(t, "clinic-north", got.OriginSiteID)
}

func TestStorage_Find_Absent(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	got, err := store.Find(ctx, "patients", "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorage_Insert_DuplicateLiveRecord(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.Insert(ctx, testLocalRecord("p-1")))

	err := store.Insert(ctx, testLocalRecord("p-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestStorage_Insert_ResurrectsDeletedRecord(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.Insert(ctx, testLocalRecord("p-1")))
	require.NoError(t, store.SoftDelete(ctx, "patients", "p-1", time.Now()))

	// Повторный insert поверх soft-deleted строки допустим
	revived := testLocalRecord("p-1")
	revived.Payload = map[string]any{"primer_nombre": "Anna"}
	require.NoError(t, store.Insert(ctx, revived))

	got, err := store.Find(ctx, "patients", "p-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Anna", got.Payload["primer_nombre"])
	assert.Nil(t, got.DeletedAt)
}

func TestStorage_UpdateRecord(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.Insert(ctx, testLocalRecord("p-1")))

	updated := testLocalRecord("p-1")
	updated.Payload = map[string]any{"primer_nombre": "Anna"}
	updated.UpdatedAt = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Update(ctx, updated))

	got, err := store.Find(ctx, "patients", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Payload["primer_nombre"])
}

func TestStorage_UpdateRecord_NotFound(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.Update(ctx, testLocalRecord("p-1"))
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	// Обновление soft-deleted строки тоже промахивается
	require.NoError(t, store.Insert(ctx, testLocalRecord("p-2")))
	require.NoError(t, store.SoftDelete(ctx, "patients", "p-2", time.Now()))
	deleted := testLocalRecord("p-2")
	err = store.Update(ctx, deleted)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestStorage_SoftDelete(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.Insert(ctx, testLocalRecord("p-1")))

	at := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	require.NoError(t, store.SoftDelete(ctx, "patients", "p-1", at))

	got, err := store.Find(ctx, "patients", "p-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Удаление отсутствующей строки не ошибка
	assert.NoError(t, store.SoftDelete(ctx, "patients", "ghost", at))
}

func TestStorage_ListRecords(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	first := testLocalRecord("p-1")
	first.UpdatedAt = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	second := testLocalRecord("p-2")
	second.UpdatedAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))

	// Записи другой таблицы и удалённые не попадают в выборку
	other := testLocalRecord("p-1")
	other.TableName = "invoices"
	require.NoError(t, store.Insert(ctx, other))

	dead := testLocalRecord("p-3")
	require.NoError(t, store.Insert(ctx, dead))
	require.NoError(t, store.SoftDelete(ctx, "patients", "p-3", time.Now()))

	records, err := store.List(ctx, "patients")
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Отсортировано по времени изменения
	assert.Equal(t, "p-2", records[0].UUID)
	assert.Equal(t, "p-1", records[1].UUID)
}
