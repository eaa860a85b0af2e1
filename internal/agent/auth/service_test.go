package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitesync/internal/agent/api"
	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/crypto"
	pkgapi "github.com/iudanet/sitesync/pkg/api"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// mockAuthStore is an in-memory AuthStorage
type mockAuthStore struct {
	auth *storage.AuthData
}

func (m *mockAuthStore) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	m.auth = auth
	return nil
}

func (m *mockAuthStore) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	if m.auth == nil {
		return nil, storage.ErrAuthNotFound
	}
	return m.auth, nil
}

func (m *mockAuthStore) DeleteAuth(ctx context.Context) error {
	if m.auth == nil {
		return storage.ErrAuthNotFound
	}
	m.auth = nil
	return nil
}

func (m *mockAuthStore) IsAuthenticated(ctx context.Context) (bool, error) {
	return m.auth != nil && time.Now().Unix() < m.auth.ExpiresAt, nil
}

const testPassphrase = "correct horse battery staple"

func TestService_Register(t *testing.T) {
	var received pkgapi.RegisterRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(pkgapi.RegisterResponse{SiteID: received.SiteID})
	}))
	defer server.Close()

	svc := NewService(api.NewClient(server.URL), &mockAuthStore{}, setupTestLogger())

	result, err := svc.Register(context.Background(), "clinic-north", "North Clinic", testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "clinic-north", result.SiteID)
	assert.Equal(t, "North Clinic", result.SiteName)
	assert.NotEmpty(t, result.PublicSalt)

	// На сервер уходит hash деривированного ключа, не passphrase
	assert.NotEmpty(t, received.AuthKeyHash)
	assert.NotContains(t, received.AuthKeyHash, testPassphrase)
	assert.Equal(t, result.PublicSalt, received.PublicSalt)

	// Hash воспроизводим из passphrase и соли
	authKey, err := crypto.DeriveAuthKeyFromBase64Salt(testPassphrase, "clinic-north", result.PublicSalt)
	require.NoError(t, err)
	wantHash, err := crypto.HashAuthKey(authKey)
	require.NoError(t, err)
	assert.Equal(t, wantHash, received.AuthKeyHash)
}

func TestService_Register_Validation(t *testing.T) {
	svc := NewService(api.NewClient("http://unreachable"), &mockAuthStore{}, setupTestLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, "Bad Site", "North Clinic", testPassphrase)
	assert.Error(t, err)

	_, err = svc.Register(ctx, "clinic-north", "", testPassphrase)
	assert.Error(t, err)

	_, err = svc.Register(ctx, "clinic-north", "North Clinic", "short")
	assert.Error(t, err)
}

func TestService_Login(t *testing.T) {
	saltBase64, err := crypto.GenerateSaltBase64()
	require.NoError(t, err)

	authKey, err := crypto.DeriveAuthKeyFromBase64Salt(testPassphrase, "clinic-north", saltBase64)
	require.NoError(t, err)
	wantHash, err := crypto.HashAuthKey(authKey)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/salt/clinic-north":
			_ = json.NewEncoder(w).Encode(pkgapi.SaltResponse{PublicSalt: saltBase64})
		case "/api/v1/auth/login":
			var req pkgapi.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, wantHash, req.AuthKeyHash)

			_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
				ExpiresIn:    900,
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	store := &mockAuthStore{}
	svc := NewService(api.NewClient(server.URL), store, setupTestLogger())

	auth, err := svc.Login(context.Background(), "clinic-north", "North Clinic", testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "access-token", auth.AccessToken)
	assert.Equal(t, saltBase64, auth.PublicSalt)
	assert.Greater(t, auth.ExpiresAt, time.Now().Unix())

	// Сессия сохранена
	require.NotNil(t, store.auth)
	assert.Equal(t, "clinic-north", store.auth.SiteID)
}

func TestService_Session_ReturnsLiveSession(t *testing.T) {
	store := &mockAuthStore{auth: &storage.AuthData{
		SiteID:      "clinic-north",
		AccessToken: "live-token",
		ExpiresAt:   time.Now().Add(10 * time.Minute).Unix(),
	}}
	svc := NewService(api.NewClient("http://unreachable"), store, setupTestLogger())

	auth, err := svc.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live-token", auth.AccessToken)
}

func TestService_Session_RefreshesExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/refresh", r.URL.Path)

		var req pkgapi.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "old-refresh", req.RefreshToken)

		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    900,
		})
	}))
	defer server.Close()

	store := &mockAuthStore{auth: &storage.AuthData{
		SiteID:       "clinic-north",
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Unix(), // в пределах минутного запаса
	}}
	svc := NewService(api.NewClient(server.URL), store, setupTestLogger())

	auth, err := svc.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", auth.AccessToken)
	assert.Equal(t, "new-refresh", auth.RefreshToken)
	assert.Equal(t, "new-refresh", store.auth.RefreshToken)
}

func TestService_Session_NotAuthenticated(t *testing.T) {
	svc := NewService(api.NewClient("http://unreachable"), &mockAuthStore{}, setupTestLogger())

	_, err := svc.Session(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestService_Logout(t *testing.T) {
	store := &mockAuthStore{auth: &storage.AuthData{SiteID: "clinic-north"}}
	svc := NewService(api.NewClient("http://unreachable"), store, setupTestLogger())

	require.NoError(t, svc.Logout(context.Background()))
	assert.Nil(t, store.auth)

	// Повторный logout не ошибка
	assert.NoError(t, svc.Logout(context.Background()))
}
