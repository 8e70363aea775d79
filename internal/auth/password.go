package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordBytes = 72
)

// ValidatePassword enforces the password length policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}
	if len(password) > maxPasswordBytes {
		return apperrors.NewValidationError("password must be at most 72 bytes", map[string]any{"field": "password"})
	}
	return nil
}

// HashPassword hashes a plaintext password, falling back to bcrypt's default
// cost when the configured cost is out of range.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
