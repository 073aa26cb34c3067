package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
)

type stubIssuer struct {
	issueFn func(ctx context.Context, header string) (*ports.IssueResult, error)
}

func (s *stubIssuer) Issue(ctx context.Context, header string) (*ports.IssueResult, error) {
	return s.issueFn(ctx, header)
}

type stubAuthorizer struct {
	authorizeFn func(ctx context.Context, header string, roles []string) (*domain.Claims, error)
}

func (s *stubAuthorizer) Authorize(ctx context.Context, header string, roles []string) (*domain.Claims, error) {
	return s.authorizeFn(ctx, header, roles)
}

func TestAuthHandler_Token_Success(t *testing.T) {
	e := echo.New()
	expires := time.UnixMilli(1_700_007_200_000)
	stub := &stubIssuer{
		issueFn: func(ctx context.Context, header string) (*ports.IssueResult, error) {
			if header != "Basic YWxpY2U6czNjcmV0" {
				t.Fatalf("unexpected header: %q", header)
			}
			return &ports.IssueResult{Username: "alice", Roles: []string{"admin"}, Token: "signed", ExpiresAt: expires}, nil
		},
	}
	handler := NewAuthHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic YWxpY2U6czNjcmV0")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("token responses must not be cached")
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "signed" || resp["username"] != "alice" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["expiresAt"] != float64(expires.UnixMilli()) {
		t.Fatalf("expected expiresAt in epoch ms, got %v", resp["expiresAt"])
	}
}

func TestAuthHandler_Token_ReturnsIssuerError(t *testing.T) {
	e := echo.New()
	stub := &stubIssuer{
		issueFn: func(ctx context.Context, header string) (*ports.IssueResult, error) {
			return nil, domain.ErrBadCredentials
		},
	}
	handler := NewAuthHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Token(c)
	if !errors.Is(err, domain.ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
}

func TestAuthHandler_Verify_PassesRequiredRoles(t *testing.T) {
	e := echo.New()
	stub := &stubAuthorizer{
		authorizeFn: func(ctx context.Context, header string, roles []string) (*domain.Claims, error) {
			if header != "Bearer abc" {
				t.Fatalf("unexpected header: %q", header)
			}
			if !reflect.DeepEqual(roles, []string{"admin", "auditor"}) {
				t.Fatalf("unexpected roles: %v", roles)
			}
			return &domain.Claims{Username: "alice", Roles: []string{"admin", "auditor"}, ExpiresAt: time.UnixMilli(42)}, nil
		},
	}
	handler := NewAuthHandler(nil, stub)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify?role=admin&role=auditor", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Verify(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["expiresAt"] != float64(42) {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Verify_NoRolesMeansNil(t *testing.T) {
	e := echo.New()
	stub := &stubAuthorizer{
		authorizeFn: func(ctx context.Context, header string, roles []string) (*domain.Claims, error) {
			if len(roles) != 0 {
				t.Fatalf("expected no required roles, got %v", roles)
			}
			return nil, domain.ErrExpired
		},
	}
	handler := NewAuthHandler(nil, stub)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Verify(c); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}
