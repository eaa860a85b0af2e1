package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitesync/internal/agent/storage"
)

func testAuthData() *storage.AuthData {
	return &storage.AuthData{
		SiteID:       "clinic-north",
		SiteName:     "North Clinic",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		PublicSalt:   "c2FsdA==",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func TestStorage_SaveGetDeleteAuth(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// До сохранения сессии нет
	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	auth := testAuthData()
	require.NoError(t, store.SaveAuth(ctx, auth))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)

	require.NoError(t, store.DeleteAuth(ctx))

	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestStorage_SaveAuth_Overwrites(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	auth := testAuthData()
	require.NoError(t, store.SaveAuth(ctx, auth))

	refreshed := testAuthData()
	refreshed.AccessToken = "new-access-token"
	require.NoError(t, store.SaveAuth(ctx, refreshed))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access-token", got.AccessToken)
}

func TestStorage_DeleteAuth_NotFound(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.DeleteAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestStorage_IsAuthenticated(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// Нет сессии
	ok, err := store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Живая сессия
	require.NoError(t, store.SaveAuth(ctx, testAuthData()))
	ok, err = store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Истекший access token
	expired := testAuthData()
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	require.NoError(t, store.SaveAuth(ctx, expired))
	ok, err = store.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
