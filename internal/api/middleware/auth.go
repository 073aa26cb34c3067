package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
	"github.com/opsbridge/tokengate/internal/infrastructure/metrics"
)

// Auth verifies the request's token, including requiredRoles when given,
// and injects the claims into the context under "claims".
func Auth(authorizer ports.TokenAuthorizer, requiredRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			claims, err := authorizer.Authorize(c.Request().Context(), header, requiredRoles)
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("authorize", metrics.FailureKind(string(domain.KindOf(err)))).Inc()
				return err
			}
			metrics.AuthorizationsTotal.Inc()

			c.Set("claims", claims)
			c.Set("username", claims.Username)

			return next(c)
		}
	}
}
