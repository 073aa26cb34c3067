package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/opsbridge/tokengate/internal/api/handler"
	"github.com/opsbridge/tokengate/internal/api/middleware"
	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
	_ "github.com/opsbridge/tokengate/internal/docs"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Issuer     ports.TokenIssuer
	Authorizer ports.TokenAuthorizer
	Users      ports.UserService
	// Checks run on /health/ready.
	Checks []handler.ReadinessCheck

	// TokenRateLimit is the sustained per-client rate for POST /auth/token
	// in requests per second. Zero disables the limiter.
	TokenRateLimit float64
	TokenRateBurst int

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(requestLogger(d.Log))

	// --- Token routes ---
	authHandler := handler.NewAuthHandler(d.Issuer, d.Authorizer)
	var tokenMiddleware []echo.MiddlewareFunc
	if d.TokenRateLimit > 0 {
		tokenMiddleware = append(tokenMiddleware, tokenRateLimiter(d.TokenRateLimit, d.TokenRateBurst))
	}
	e.POST("/auth/token", authHandler.Token, tokenMiddleware...)
	e.GET("/auth/verify", authHandler.Verify)

	// --- User administration (token + role required) ---
	userHandler := handler.NewUserHandler(d.Users, d.Log)
	users := e.Group("/users", middleware.Auth(d.Authorizer))
	users.POST("", userHandler.Create, middleware.RBAC(domain.RoleAdmin))
	users.GET("/:username", userHandler.Get, middleware.RBAC(domain.RoleAdmin, domain.RoleAuditor))
	users.PATCH("/:username/active", userHandler.SetActive, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks...).Readiness)

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

func tokenRateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
	})
}
