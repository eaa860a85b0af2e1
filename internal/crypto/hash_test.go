package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAuthKey(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		authKey []byte
		wantErr bool
	}{
		{
			name:    "successful hash",
			authKey: []byte("test_auth_key_12345678901234567890"),
			wantErr: false,
		},
		{
			name:    "empty auth key",
			authKey: []byte{},
			wantErr: true,
			errMsg:  "auth key cannot be empty",
		},
		{
			name:    "nil auth key",
			authKey: nil,
			wantErr: true,
			errMsg:  "auth key cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashedAuthKey, err := HashAuthKey(tt.authKey)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Empty(t, hashedAuthKey)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, hashedAuthKey)

				// SHA256 хеш всегда 64 символа (hex-encoded, 32 bytes * 2)
				assert.Len(t, hashedAuthKey, 64)
				assert.Regexp(t, "^[a-f0-9]{64}$", hashedAuthKey)
			}
		})
	}
}

func TestHashAuthKey_Deterministic(t *testing.T) {
	// Агент и сервер должны получать одно и то же значение
	authKey := []byte("site_auth_key_123")

	hash1, err1 := HashAuthKey(authKey)
	require.NoError(t, err1)

	hash2, err2 := HashAuthKey(authKey)
	require.NoError(t, err2)

	assert.Equal(t, hash1, hash2)
}

func TestHashAuthKey_KnownVector(t *testing.T) {
	authKey := []byte("test")
	expectedHash := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08" // SHA256("test")

	hash, err := HashAuthKey(authKey)
	require.NoError(t, err)
	assert.Equal(t, expectedHash, hash)
}

func TestVerifyAuthKey(t *testing.T) {
	authKey := []byte("site_auth_key_123")
	hash, err := HashAuthKey(authKey)
	require.NoError(t, err)

	t.Run("matching key verifies", func(t *testing.T) {
		assert.NoError(t, VerifyAuthKey(authKey, hash))
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		err := VerifyAuthKey([]byte("other_key"), hash)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid auth key")
	})

	t.Run("empty key rejected", func(t *testing.T) {
		require.Error(t, VerifyAuthKey(nil, hash))
	})

	t.Run("empty hash rejected", func(t *testing.T) {
		require.Error(t, VerifyAuthKey(authKey, ""))
	})
}

func TestHashToken(t *testing.T) {
	hash := HashToken("refresh-token-value")

	assert.Len(t, hash, 64)
	assert.Regexp(t, "^[a-f0-9]{64}$", hash)
	assert.Equal(t, hash, HashToken("refresh-token-value"))
	assert.NotEqual(t, hash, HashToken("another-token"))
}
