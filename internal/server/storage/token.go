package storage

import (
	"context"

	"github.com/iudanet/sitesync/internal/models"
)

// TokenStorage defines the interface for refresh token persistence.
// Tokens are stored by hash, never in the clear.
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token
	// A token with the same hash is replaced
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves a refresh token by its hash
	// Returns ErrTokenNotFound if the token doesn't exist
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// DeleteRefreshToken deletes a refresh token by its hash
	// Returns ErrTokenNotFound if the token doesn't exist
	DeleteRefreshToken(ctx context.Context, tokenHash string) error

	// DeleteSiteTokens deletes all refresh tokens of a site
	// Returns the number of deleted tokens
	DeleteSiteTokens(ctx context.Context, siteID string) (int, error)

	// DeleteExpiredTokens removes all expired tokens
	// Returns the number of deleted tokens
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
