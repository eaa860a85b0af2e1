package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/sitesync/internal/agent/api"
	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/crypto"
	"github.com/iudanet/sitesync/internal/validation"
	pkgapi "github.com/iudanet/sitesync/pkg/api"
)

// Service предоставляет функции авторизации филиала
type Service struct {
	apiClient *api.Client
	authStore storage.AuthStorage
	logger    *slog.Logger
}

// NewService создает новый сервис авторизации
func NewService(apiClient *api.Client, authStore storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		authStore: authStore,
		logger:    logger,
	}
}

// RegisterResult содержит результат регистрации филиала
type RegisterResult struct {
	SiteID     string
	SiteName   string
	PublicSalt string // public salt (base64)
}

// Register регистрирует филиал на центральном сервере.
// Ключ аутентификации деривируется из passphrase и никуда не сохраняется.
func (s *Service) Register(ctx context.Context, siteID, siteName, passphrase string) (*RegisterResult, error) {
	if err := validation.ValidateSiteID(siteID); err != nil {
		return nil, fmt.Errorf("invalid site_id: %w", err)
	}
	if siteName == "" {
		return nil, fmt.Errorf("site name cannot be empty")
	}
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}

	// 1. Генерируем публичную соль
	publicSaltBase64, err := crypto.GenerateSaltBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// 2. Деривируем auth key из passphrase
	authKey, err := crypto.DeriveAuthKeyFromBase64Salt(passphrase, siteID, publicSaltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Хешируем auth key для отправки на сервер
	authKeyHash, err := crypto.HashAuthKey(authKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на регистрацию
	req := pkgapi.RegisterRequest{
		SiteID:      siteID,
		Name:        siteName,
		AuthKeyHash: authKeyHash,
		PublicSalt:  publicSaltBase64,
	}

	resp, err := s.apiClient.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{
		SiteID:     resp.SiteID,
		SiteName:   siteName,
		PublicSalt: publicSaltBase64,
	}, nil
}

// Login выполняет аутентификацию филиала и сохраняет сессию
func (s *Service) Login(ctx context.Context, siteID, siteName, passphrase string) (*storage.AuthData, error) {
	if err := validation.ValidateSiteID(siteID); err != nil {
		return nil, fmt.Errorf("invalid site_id: %w", err)
	}
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}

	// 1. Получаем public_salt с сервера
	saltResp, err := s.apiClient.GetSalt(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	// 2. Деривируем auth key из passphrase
	authKey, err := crypto.DeriveAuthKeyFromBase64Salt(passphrase, siteID, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	// 3. Хешируем auth key
	authKeyHash, err := crypto.HashAuthKey(authKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash auth key: %w", err)
	}

	// 4. Отправляем запрос на логин
	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		SiteID:      siteID,
		AuthKeyHash: authKeyHash,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// 5. Сохраняем сессию
	auth := &storage.AuthData{
		SiteID:       siteID,
		SiteName:     siteName,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    time.Now().Unix() + resp.ExpiresIn,
	}
	if err := s.authStore.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return auth, nil
}

// Session возвращает действующую сессию, обновляя токены при необходимости.
// Возвращает storage.ErrAuthNotFound если филиал не залогинен.
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.authStore.GetAuth(ctx)
	if err != nil {
		return nil, err
	}

	// Запас в минуту, чтобы токен не истек посреди серии запросов
	if time.Now().Unix() < auth.ExpiresAt-60 {
		return auth, nil
	}

	s.logger.Debug("access token expired, refreshing", "site_id", auth.SiteID)

	resp, err := s.apiClient.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: auth.RefreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	auth.AccessToken = resp.AccessToken
	auth.RefreshToken = resp.RefreshToken
	auth.ExpiresAt = time.Now().Unix() + resp.ExpiresIn

	if err := s.authStore.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save refreshed session: %w", err)
	}

	return auth, nil
}

// Logout удаляет локальную сессию
func (s *Service) Logout(ctx context.Context) error {
	if err := s.authStore.DeleteAuth(ctx); err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// IsAuthenticated проверяет наличие действующей сессии
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.authStore.IsAuthenticated(ctx)
}
