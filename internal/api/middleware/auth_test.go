package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/service"
)

var now = time.UnixMilli(1_700_000_000_000)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return now }

func newAuthorizer() *service.TokenAuthorizer {
	return service.NewTokenAuthorizer(service.TokenConfig{Secret: "secret"}, fixedClock{})
}

func signToken(t *testing.T, secret string, roles []string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username":  "alice",
		"roleList":  roles,
		"expiresIn": expiresAt.UnixMilli(),
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", []string{"admin"}, now.Add(time.Hour)))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(newAuthorizer())(func(c echo.Context) error {
		called = true
		claims, ok := c.Get("claims").(*domain.Claims)
		if !ok || claims.Username != "alice" {
			t.Fatalf("claims not set")
		}
		if c.Get("username") != "alice" {
			t.Fatalf("username not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		roles  []string
		want   error
	}{
		{"missing header", "", nil, domain.ErrMissingToken},
		{"garbage", "Bearer abc", nil, domain.ErrInvalidToken},
		{"wrong secret", "Bearer " + signToken(t, "other", []string{"admin"}, now.Add(time.Hour)), nil, domain.ErrInvalidToken},
		{"expired", "Bearer " + signToken(t, "secret", []string{"admin"}, now.Add(-time.Minute)), nil, domain.ErrExpired},
		{"missing role", "Bearer " + signToken(t, "secret", []string{"auditor"}, now.Add(time.Hour)), []string{"admin"}, domain.ErrInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			handler := Auth(newAuthorizer(), tt.roles...)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			if err := handler(c); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
