package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is accepted when no hash is configured anywhere.
const DefaultPassword = "admin123"

// Password length bounds for new passwords.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 200
)

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// LegacyHash returns the hex SHA-256 of password, the format of older deployments.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword reports whether password matches hash. Both bcrypt hashes and
// legacy SHA-256 hex digests are accepted.
func CheckPassword(hash, password string) bool {
	hash = strings.TrimSpace(hash)
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(LegacyHash(password))) == 1
}
