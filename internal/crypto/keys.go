package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for site auth key derivation.
const (
	// Argon2Time is the iteration count (time cost).
	Argon2Time = 1
	// Argon2Memory is the memory cost in KB (64MB).
	Argon2Memory = 64 * 1024
	// Argon2Threads is the parallelism degree.
	Argon2Threads = 4
	// Argon2KeyLen is the derived key length in bytes.
	Argon2KeyLen = 32
	// SaltSize is the salt length in bytes.
	SaltSize = 32
)

// GenerateSalt returns a cryptographically random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	_, err := rand.Read(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateSaltBase64 returns a cryptographically random salt, Base64 encoded.
func GenerateSaltBase64() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// DeriveAuthKey derives the site auth key from its enrollment passphrase
// with Argon2id. The site identifier is mixed in so two sites sharing a
// passphrase still derive different keys.
func DeriveAuthKey(passphrase, siteID string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if siteID == "" {
		return nil, fmt.Errorf("site id cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	input := []byte(passphrase + siteID + "auth")
	return argon2.IDKey(input, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen), nil
}

// DeriveAuthKeyFromBase64Salt derives the auth key from a Base64 encoded salt.
func DeriveAuthKeyFromBase64Salt(passphrase, siteID, saltBase64 string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return DeriveAuthKey(passphrase, siteID, salt)
}
