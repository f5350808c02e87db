package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks a submitted password against a stored value.
// Stored values are bcrypt hashes; plaintext rows are only accepted when
// legacy plaintext is enabled.
type PasswordVerifier struct {
	allowLegacyPlaintext bool
}

func NewPasswordVerifier(allowLegacyPlaintext bool) *PasswordVerifier {
	return &PasswordVerifier{allowLegacyPlaintext: allowLegacyPlaintext}
}

func (v *PasswordVerifier) Verify(stored, password string) bool {
	if stored == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if !v.allowLegacyPlaintext {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// HashPassword hashes a password for storage in a credential table
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
