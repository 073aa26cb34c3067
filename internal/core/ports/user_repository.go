package ports

import (
	"context"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

// UserRepository is the user store. Lookups are partitioned by application
// type; FindByUsername returns domain.ErrUserNotFound for unknown users.
type UserRepository interface {
	FindByUsername(ctx context.Context, applicationType, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	SetActive(ctx context.Context, applicationType, username string, active bool) error
}
