package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by VerifyPassword for a wrong password.
var ErrPasswordMismatch = bcrypt.ErrMismatchedHashAndPassword

func HashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(plain, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// IsHashed reports whether stored looks like a bcrypt hash. Anything else
// is a plaintext credential left by older deployments.
func IsHashed(stored string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, prefix) {
			return true
		}
	}
	return false
}

// MatchLegacy compares a plaintext credential in constant time.
func MatchLegacy(plain, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(plain), []byte(stored)) == 1
}

const passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

var ErrWeakPassword = errors.New("password must be at least 8 characters and contain a lowercase letter, an uppercase letter, a digit and a symbol")

// CheckPasswordPolicy enforces the registration strength rules.
func CheckPasswordPolicy(p string) error {
	if len([]rune(p)) < 8 {
		return ErrWeakPassword
	}
	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
