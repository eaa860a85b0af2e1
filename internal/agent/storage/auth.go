package storage

import (
	"context"
)

// AuthStorage defines interface for storing authentication data on the agent.
// It works with raw data and performs no encryption itself.
type AuthStorage interface {
	// SaveAuth stores authentication data as-is
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if valid authentication exists (not expired)
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData represents the agent's session with the central server
type AuthData struct {
	SiteID       string `json:"site_id"`
	SiteName     string `json:"site_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PublicSalt   string `json:"public_salt"`
	ExpiresAt    int64  `json:"expires_at"`
}
