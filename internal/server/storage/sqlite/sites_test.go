package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/internal/server/storage"
)

func testSite(siteID string) *models.Site {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &models.Site{
		ID:          siteID,
		Name:        "North Clinic",
		AuthKeyHash: "hash123",
		PublicSalt:  "salt123",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSiteStorage_CreateSite(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	site := testSite("clinic-north")
	require.NoError(t, s.CreateSite(ctx, site))

	found, err := s.GetSiteByID(ctx, "clinic-north")
	require.NoError(t, err)
	assert.Equal(t, site.ID, found.ID)
	assert.Equal(t, site.Name, found.Name)
	assert.Equal(t, site.AuthKeyHash, found.AuthKeyHash)
	assert.Equal(t, site.PublicSalt, found.PublicSalt)
	assert.WithinDuration(t, site.CreatedAt, found.CreatedAt, 0)
}

func TestSiteStorage_CreateSite_Duplicate(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateSite(ctx, testSite("clinic-north")))

	err := s.CreateSite(ctx, testSite("clinic-north"))
	assert.ErrorIs(t, err, storage.ErrSiteAlreadyExists)
}

func TestSiteStorage_GetSiteByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetSiteByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrSiteNotFound)
}
