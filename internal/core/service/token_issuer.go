package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
)

const basicScheme = "Basic "

// TokenIssuer verifies Basic credentials against the user store and mints
// signed, time-limited tokens.
type TokenIssuer struct {
	users           ports.UserRepository
	applicationType string
	secret          []byte
	lifetime        time.Duration
	clock           ports.Clock
	log             zerolog.Logger
}

func NewTokenIssuer(users ports.UserRepository, cfg TokenConfig, clock ports.Clock, log zerolog.Logger) *TokenIssuer {
	lifetime, ok := ParseLifetime(cfg.Lifetime)
	if !ok {
		log.Warn().
			Str("lifetime", cfg.Lifetime).
			Dur("fallback", lifetime).
			Msg("unrecognised token lifetime, using fallback")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TokenIssuer{
		users:           users,
		applicationType: cfg.ApplicationType,
		secret:          []byte(cfg.Secret),
		lifetime:        lifetime,
		clock:           clock,
		log:             log,
	}
}

// Issue checks the credentials in a "Basic <base64(user:pass)>" header and
// returns a signed token with the user's roles as of now.
func (s *TokenIssuer) Issue(ctx context.Context, credentialHeader string) (*ports.IssueResult, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrConfig
	}

	username, password, err := parseBasicCredentials(credentialHeader)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, s.applicationType, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("issue token: find user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrBadCredentials
		}
		return nil, fmt.Errorf("issue token: verify password: %w", err)
	}

	now := s.clock.Now()
	expiresAt := time.UnixMilli(now.UnixMilli() + s.lifetime.Milliseconds())
	roles := make([]string, len(user.Roles))
	copy(roles, user.Roles)

	signed, err := s.sign(user.Username, roles, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue token: sign: %w", err)
	}

	s.log.Debug().
		Str("username", user.Username).
		Strs("roles", roles).
		Time("expires_at", expiresAt).
		Msg("token issued")

	return &ports.IssueResult{
		Username:  user.Username,
		Roles:     roles,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *TokenIssuer) sign(username string, roles []string, now, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		Username:  username,
		RoleList:  roles,
		ExpiresIn: expiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			// exp is serialised in whole seconds; round up so it never
			// precedes expiresIn, which stays the millisecond-exact bound.
			ExpiresAt: jwt.NewNumericDate(expiresAt.Add(time.Second - time.Nanosecond)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// parseBasicCredentials splits on the first colon only; passwords may
// contain colons.
func parseBasicCredentials(header string) (username, password string, err error) {
	if !strings.HasPrefix(header, basicScheme) {
		return "", "", domain.ErrMalformedRequest
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(basicScheme):]))
	if err != nil {
		return "", "", domain.ErrMalformedRequest.Wrap(err)
	}

	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", domain.ErrMalformedRequest
	}
	return username, password, nil
}
