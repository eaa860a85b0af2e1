package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_LastSync(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// До первого pull курсор нулевой
	got, err := store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	at := time.Date(2026, 3, 10, 12, 30, 45, 123000000, time.UTC)
	require.NoError(t, store.SaveLastSync(ctx, at))

	got, err = store.GetLastSync(ctx)
	require.NoError(t, err)
	// Курсор хранится с точностью до миллисекунды
	assert.True(t, at.Equal(got))
}

func TestStorage_LastSync_Overwrites(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	first := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, store.SaveLastSync(ctx, first))
	require.NoError(t, store.SaveLastSync(ctx, second))

	got, err := store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.True(t, second.Equal(got))
}
