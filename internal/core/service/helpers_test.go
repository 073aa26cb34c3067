package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

const (
	testAppType = "cloud"
	testSecret  = "test-secret-32-bytes-long-xxxxx"
)

// baseTime is millisecond-aligned but not second-aligned on purpose.
var baseTime = time.UnixMilli(1_700_000_000_123)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	findErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func userKey(appType, username string) string { return appType + "/" + username }

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

func (r *stubUserRepo) FindByUsername(_ context.Context, appType, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[userKey(appType, username)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := userKey(user.ApplicationType, user.Username)
	if _, exists := r.users[k]; exists {
		return nil, domain.ErrUserExists
	}
	c := cloneUser(user)
	if c.ID == "" {
		c.ID = k
	}
	r.users[k] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) SetActive(_ context.Context, appType, username string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userKey(appType, username)]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

// seed stores a user with a low-cost bcrypt hash of password.
func (r *stubUserRepo) seed(t *testing.T, appType, username, password string, active bool, roles ...string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userKey(appType, username)] = &domain.User{
		ApplicationType: appType,
		Username:        username,
		PasswordHash:    string(hash),
		IsActive:        active,
		Roles:           roles,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func signClaims(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
