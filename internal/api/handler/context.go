package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

// ErrorResponse is the error envelope rendered by the API error handler.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ctxClaims returns the claims injected by the Auth middleware. Presence
// proves the middleware ran.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, ok := c.Get("claims").(*domain.Claims)
	if !ok || claims == nil {
		return nil, domain.ErrMissingToken
	}
	return claims, nil
}
