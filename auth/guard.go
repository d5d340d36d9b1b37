package auth

import (
	"log/slog"

	"dealdesk/failure"
)

// TokenVerifier abstracts TokenCodec for the Guard.
type TokenVerifier interface {
	Verify(raw string) (Claims, error)
}

// DenialRecorder observes rejected calls. Implemented by metrics.Collector.
type DenialRecorder interface {
	RecordDenial(kind string)
}

// Guard enforces capability checks on session tokens. It reads nothing but
// the token, so a rejected caller learns nothing about the target resource.
type Guard struct {
	verifier TokenVerifier
	logger   *slog.Logger
	denials  DenialRecorder
}

func NewGuard(verifier TokenVerifier, logger *slog.Logger, denials DenialRecorder) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		verifier: verifier,
		logger:   logger,
		denials:  denials,
	}
}

// Require fails with Unauthenticated when token is empty or does not verify,
// and with Forbidden when the token's role lacks capability.
func (g *Guard) Require(token string, capability Capability) (Claims, error) {
	if token == "" {
		g.deny(string(failure.KindUnauthenticated))
		return Claims{}, failure.Unauthenticated()
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.logger.Debug("session token rejected", slog.String("reason", InvalidReason(err)))
		g.deny(string(failure.KindUnauthenticated))
		return Claims{}, failure.Unauthenticated()
	}

	if !claims.Role.Can(capability) {
		g.deny(string(failure.KindForbidden))
		return Claims{}, failure.Forbidden()
	}

	return claims, nil
}

// RequireAdmin guards every staff operation.
func (g *Guard) RequireAdmin(token string) (Claims, error) {
	return g.Require(token, CapManageDeals)
}

func (g *Guard) deny(kind string) {
	if g.denials != nil {
		g.denials.RecordDenial(kind)
	}
}
