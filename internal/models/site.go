package models

import "time"

// Site represents a physical location enrolled with the central authority.
type Site struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`            // stable site identifier, e.g. "clinic-norte"
	Name        string    `json:"name"`          // human-readable location name
	AuthKeyHash string    `json:"auth_key_hash"` // SHA256 hash of the site's auth key
	PublicSalt  string    `json:"public_salt"`   // base64 encoded salt (32 bytes)
}

// RefreshToken represents a site's refresh token.
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	TokenHash string    `json:"token_hash"` // SHA256 hash of the token
}
