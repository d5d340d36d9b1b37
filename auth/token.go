package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of a session token.
const TokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is the only error Verify reports to callers, whatever the cause.
var ErrInvalidToken = errors.New("auth: invalid token")

// invalidTokenError keeps the concrete reason for logs while comparing
// equal to ErrInvalidToken and printing the same message.
type invalidTokenError struct {
	reason string
}

func (e *invalidTokenError) Error() string { return ErrInvalidToken.Error() }

func (e *invalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

// InvalidReason returns "expired", "signature" or "malformed" for errors
// produced by Verify, and "" otherwise. Intended for debug logging only.
func InvalidReason(err error) string {
	var ite *invalidTokenError
	if errors.As(err, &ite) {
		return ite.reason
	}
	return ""
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256-signed session tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Issue signs a token carrying role that expires TokenTTL from now.
func (c *TokenCodec) Issue(role Role) (string, time.Time, error) {
	issuedAt := c.now()
	expiresAt := issuedAt.Add(TokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (c *TokenCodec) Verify(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, &invalidTokenError{reason: "expired"}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, &invalidTokenError{reason: "signature"}
		default:
			return Claims{}, &invalidTokenError{reason: "malformed"}
		}
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Role == "" {
		return Claims{}, &invalidTokenError{reason: "malformed"}
	}

	out := Claims{Role: Role(claims.Role)}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
