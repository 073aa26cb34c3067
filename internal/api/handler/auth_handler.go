package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/core/ports"
	"github.com/opsbridge/tokengate/internal/infrastructure/metrics"
)

type AuthHandler struct {
	issuer     ports.TokenIssuer
	authorizer ports.TokenAuthorizer
}

func NewAuthHandler(issuer ports.TokenIssuer, authorizer ports.TokenAuthorizer) *AuthHandler {
	return &AuthHandler{issuer: issuer, authorizer: authorizer}
}

type tokenResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Token    string   `json:"token"`
	// ExpiresAt is in epoch milliseconds.
	ExpiresAt int64 `json:"expiresAt"`
}

type verifyResponse struct {
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	ExpiresAt int64    `json:"expiresAt"`
}

// Token exchanges Basic credentials for a signed token.
//
// @Summary      Issue a token
// @Tags         auth
// @Produce      json
// @Param        Authorization  header    string  true  "Basic base64(username:password)"
// @Success      200            {object}  tokenResponse
// @Failure      400            {object}  ErrorResponse
// @Failure      401            {object}  ErrorResponse
// @Failure      403            {object}  ErrorResponse
// @Failure      404            {object}  ErrorResponse
// @Failure      429            {object}  ErrorResponse
// @Failure      500            {object}  ErrorResponse
// @Router       /auth/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	res, err := h.issuer.Issue(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		metrics.AuthFailuresTotal.WithLabelValues("issue", metrics.FailureKind(string(domain.KindOf(err)))).Inc()
		return err
	}
	metrics.TokensIssuedTotal.Inc()

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, tokenResponse{
		Username:  res.Username,
		Roles:     res.Roles,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UnixMilli(),
	})
}

// Verify checks the presented token and, when role query parameters are
// given, that it carries all of them.
//
// @Summary      Verify a token
// @Tags         auth
// @Produce      json
// @Param        Authorization  header    string    true   "Bearer token"
// @Param        role           query     []string  false  "Required roles"  collectionFormat(multi)
// @Success      200            {object}  verifyResponse
// @Failure      401            {object}  ErrorResponse
// @Failure      403            {object}  ErrorResponse
// @Failure      500            {object}  ErrorResponse
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	required := c.QueryParams()["role"]
	claims, err := h.authorizer.Authorize(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), required)
	if err != nil {
		metrics.AuthFailuresTotal.WithLabelValues("authorize", metrics.FailureKind(string(domain.KindOf(err)))).Inc()
		return err
	}
	metrics.AuthorizationsTotal.Inc()

	return c.JSON(http.StatusOK, verifyResponse{
		Username:  claims.Username,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.UnixMilli(),
	})
}
