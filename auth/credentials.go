package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoCredentials signals that no admin password has been configured.
var ErrNoCredentials = errors.New("auth: admin credentials not configured")

// CredentialSource provides the bcrypt hash of the admin password.
type CredentialSource interface {
	AdminPasswordHash(ctx context.Context) (string, error)
}

// StaticCredentials serves a hash resolved once at startup from configuration.
type StaticCredentials struct {
	hash string
}

// NewStaticCredentials wraps a bcrypt hash.
func NewStaticCredentials(hash string) *StaticCredentials {
	return &StaticCredentials{hash: strings.TrimSpace(hash)}
}

// AdminPasswordHash returns the configured hash.
func (s *StaticCredentials) AdminPasswordHash(ctx context.Context) (string, error) {
	if s.hash == "" {
		return "", ErrNoCredentials
	}
	return s.hash, nil
}

// HashPassword hashes a plaintext password with bcrypt. A cost <= 0 uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("auth: empty password")
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hashed), nil
}
