package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
)

// UserService provisions accounts for one application type.
type UserService struct {
	repo            ports.UserRepository
	applicationType string
	clock           ports.Clock
	log             zerolog.Logger
}

func NewUserService(repo ports.UserRepository, applicationType string, clock ports.Clock, log zerolog.Logger) *UserService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &UserService{repo: repo, applicationType: applicationType, clock: clock, log: log}
}

func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	// Basic credentials split on the first colon, so a username containing
	// one could never authenticate.
	if in.Username == "" || in.Password == "" || strings.Contains(in.Username, ":") {
		return nil, domain.ErrInvalidUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ApplicationType: s.applicationType,
		Username:        in.Username,
		PasswordHash:    string(hash),
		IsActive:        in.IsActive,
		Roles:           uniqueRoles(in.Roles),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("application_type", s.applicationType).
		Str("username", created.Username).
		Strs("roles", created.Roles).
		Msg("user created")
	return created, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.FindByUsername(ctx, s.applicationType, username)
}

// SetActive toggles the account. Tokens issued before a deactivation stay
// valid until they expire.
func (s *UserService) SetActive(ctx context.Context, username string, active bool) error {
	if err := s.repo.SetActive(ctx, s.applicationType, username, active); err != nil {
		return err
	}
	s.log.Info().
		Str("application_type", s.applicationType).
		Str("username", username).
		Bool("active", active).
		Msg("user activation changed")
	return nil
}

func uniqueRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
