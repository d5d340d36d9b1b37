package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"dealdesk/failure"
)

// ErrInvalidCredentials signals a wrong admin password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// LoginRecorder observes login outcomes. Implemented by metrics.Collector.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Service handles staff authentication.
type Service struct {
	credentials CredentialSource
	codec       *TokenCodec
	logger      *slog.Logger
	recorder    LoginRecorder
}

// NewService creates a new authentication service.
func NewService(credentials CredentialSource, codec *TokenCodec, logger *slog.Logger, recorder LoginRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		credentials: credentials,
		codec:       codec,
		logger:      logger,
		recorder:    recorder,
	}
}

// Login checks the admin password and issues an admin session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if req.Password == "" {
		s.record("rejected")
		return LoginResult{}, invalidCredentials()
	}

	hash, err := s.credentials.AdminPasswordHash(ctx)
	if err != nil {
		s.record("error")
		return LoginResult{}, failure.Internal(fmt.Errorf("auth: load credentials: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		s.record("rejected")
		s.logger.WarnContext(ctx, "admin login rejected")
		return LoginResult{}, invalidCredentials()
	}

	token, expiresAt, err := s.codec.Issue(RoleAdmin)
	if err != nil {
		s.record("error")
		return LoginResult{}, failure.Internal(fmt.Errorf("auth: generate token: %w", err))
	}

	s.record("success")
	s.logger.InfoContext(ctx, "admin login succeeded", slog.Time("expires_at", expiresAt))
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// invalidCredentials is the single answer for a blank or wrong password.
func invalidCredentials() *failure.Error {
	return &failure.Error{
		Kind:    failure.KindUnauthenticated,
		Message: "invalid credentials",
		Err:     ErrInvalidCredentials,
	}
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}
