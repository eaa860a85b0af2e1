package api

// RegisterRequest enrolls a new site with the central authority.
type RegisterRequest struct {
	SiteID      string `json:"site_id"`       // stable site identifier
	Name        string `json:"name"`          // human-readable location name
	AuthKeyHash string `json:"auth_key_hash"` // SHA256 hash of the site's auth key (hex-encoded)
	PublicSalt  string `json:"public_salt"`   // base64 encoded salt (32 bytes)
}

// RegisterResponse confirms a successful enrollment.
type RegisterResponse struct {
	SiteID  string `json:"site_id"`
	Message string `json:"message"`
}

// SaltResponse carries a site's public salt.
type SaltResponse struct {
	PublicSalt string `json:"public_salt"`
}

// LoginRequest authenticates a site.
type LoginRequest struct {
	SiteID      string `json:"site_id"`
	AuthKeyHash string `json:"auth_key_hash"` // SHA256 hash of the auth key (hex-encoded)
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // opaque refresh token
	ExpiresIn    int64  `json:"expires_in"`    // access token lifetime in seconds
}

// ErrorResponse is the envelope for call-level errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
