package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

// RBAC lets the request through when the authenticated claims carry at least
// one of allowedRoles. It must run after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("claims").(*domain.Claims)
			if !ok || claims == nil {
				return domain.ErrMissingToken
			}
			if !claims.HasAnyRole(allowedRoles...) {
				return domain.ErrInsufficientRole
			}
			return next(c)
		}
	}
}
