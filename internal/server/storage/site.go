package storage

import (
	"context"

	"github.com/iudanet/sitesync/internal/models"
)

// SiteStorage defines the interface for site enrollment persistence
type SiteStorage interface {
	// CreateSite enrolls a new site
	// Returns ErrSiteAlreadyExists if the site ID is taken
	CreateSite(ctx context.Context, site *models.Site) error

	// GetSiteByID retrieves a site by its identifier
	// Returns ErrSiteNotFound if the site doesn't exist
	GetSiteByID(ctx context.Context, siteID string) (*models.Site, error)
}
