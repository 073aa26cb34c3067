package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opsbridge/tokengate/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		kind      string
		challenge string
	}{
		{"config", domain.ErrConfig, http.StatusInternalServerError, "config_error", ""},
		{"malformed", domain.ErrMalformedRequest, http.StatusBadRequest, "malformed_request", ""},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not_found", ""},
		{"inactive", domain.ErrInactive, http.StatusForbidden, "inactive", ""},
		{"bad credentials", domain.ErrBadCredentials, http.StatusUnauthorized, "bad_credentials", ""},
		{"missing token", domain.ErrMissingToken, http.StatusUnauthorized, "missing_token", "Bearer"},
		{"invalid token", domain.ErrInvalidToken.Wrap(errors.New("bad sig")), http.StatusUnauthorized, "invalid_token", `Bearer error="invalid_token"`},
		{"not yet active", domain.ErrNotYetActive, http.StatusUnauthorized, "not_yet_active", `Bearer error="invalid_token"`},
		{"expired", domain.ErrExpired, http.StatusUnauthorized, "expired", `Bearer error="invalid_token"`},
		{"insufficient role", domain.ErrInsufficientRole, http.StatusForbidden, "insufficient_role", `Bearer error="insufficient_scope"`},
		{"exchange failed", domain.ErrExchangeFailed, http.StatusBadGateway, "exchange_failed", ""},
		{"user exists", domain.ErrUserExists, http.StatusConflict, "", ""},
		{"invalid user", fmt.Errorf("create: %w", domain.ErrInvalidUser), http.StatusBadRequest, "", ""},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "", ""},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), http.StatusTooManyRequests, "", ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body["kind"] != tt.kind {
				t.Fatalf("expected kind %q, got %q", tt.kind, body["kind"])
			}
			if body["error"] == "" {
				t.Fatalf("expected error message")
			}
			if got := rec.Header().Get(echo.HeaderWWWAuthenticate); got != tt.challenge {
				t.Fatalf("expected challenge %q, got %q", tt.challenge, got)
			}
		})
	}
}

func TestHTTPErrorHandler_HidesCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("mongo: connection refused at 10.0.0.3"), c)

	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "internal server error" {
		t.Fatalf("cause leaked: %q", body["error"])
	}
}
