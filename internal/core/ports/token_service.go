package ports

import (
	"context"
	"time"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

// IssueResult is the outcome of a successful credential check.
type IssueResult struct {
	Username  string
	Roles     []string
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer trades a Basic credentials header for a signed token.
type TokenIssuer interface {
	Issue(ctx context.Context, credentialHeader string) (*IssueResult, error)
}

// TokenAuthorizer verifies a presented token and, when requiredRoles is
// non-empty, that the token carries all of them.
type TokenAuthorizer interface {
	Authorize(ctx context.Context, authorizationHeader string, requiredRoles []string) (*domain.Claims, error)
}
