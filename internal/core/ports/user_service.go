package ports

import (
	"context"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

// CreateUserInput carries the data needed to provision an account.
type CreateUserInput struct {
	Username string
	Password string
	Roles    []string
	IsActive bool
}

// UserService provisions accounts in the instance's application type.
type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, username string) (*domain.User, error)
	SetActive(ctx context.Context, username string, active bool) error
}
