package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
)

// TokenAuthorizer verifies tokens minted by TokenIssuer. It holds no mutable
// state and is safe for concurrent use.
type TokenAuthorizer struct {
	secret []byte
	clock  ports.Clock
	parser *jwt.Parser
}

func NewTokenAuthorizer(cfg TokenConfig, clock ports.Clock) *TokenAuthorizer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TokenAuthorizer{
		secret: []byte(cfg.Secret),
		clock:  clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(clock.Now),
			jwt.WithExpirationRequired(),
		),
	}
}

// Authorize accepts "Bearer <token>" as well as a bare token. Both the
// signed exp and the embedded expiresIn must be in the future.
func (a *TokenAuthorizer) Authorize(_ context.Context, authorizationHeader string, requiredRoles []string) (*domain.Claims, error) {
	if len(a.secret) == 0 {
		return nil, domain.ErrConfig
	}
	if strings.TrimSpace(authorizationHeader) == "" {
		return nil, domain.ErrMissingToken
	}

	var tc tokenClaims
	_, err := a.parser.ParseWithClaims(bearerToken(authorizationHeader), &tc, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrExpired.Wrap(err)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, domain.ErrNotYetActive.Wrap(err)
		default:
			return nil, domain.ErrInvalidToken.Wrap(err)
		}
	}

	if tc.Username == "" || tc.ExpiresIn <= 0 {
		return nil, domain.ErrInvalidToken
	}
	if a.clock.Now().UnixMilli() >= tc.ExpiresIn {
		return nil, domain.ErrExpired
	}

	roles := tc.RoleList
	if roles == nil {
		roles = []string{}
	}
	claims := &domain.Claims{
		Username:  tc.Username,
		Roles:     roles,
		ExpiresAt: time.UnixMilli(tc.ExpiresIn),
	}
	if !claims.HasRoles(requiredRoles...) {
		return nil, domain.ErrInsufficientRole
	}
	return claims, nil
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
