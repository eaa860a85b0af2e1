package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// создаём тестовое BoltDB хранилище во временной директории
func createTestStorage(t *testing.T) (*Storage, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "agent_test.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		require.NoError(t, store.Close())
		require.NoError(t, os.RemoveAll(tmpDir))
	}

	return store, cleanup
}

func TestNew_CreatesDatabaseFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "new_test.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent-dir/sub/agent.db")
	assert.Error(t, err)
}

func TestStorage_CloseTwice(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := New(context.Background(), filepath.Join(tmpDir, "close_test.db"))
	require.NoError(t, err)

	require.NoError(t, store.Close())
	// Повторное закрытие не должно паниковать
	assert.NoError(t, store.Close())
}
