package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opsbridge/tokengate/internal/api/handler"
	"github.com/opsbridge/tokengate/internal/core/domain"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindConfig:           http.StatusInternalServerError,
	domain.KindMalformedRequest: http.StatusBadRequest,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindInactive:         http.StatusForbidden,
	domain.KindBadCredentials:   http.StatusUnauthorized,
	domain.KindMissingToken:     http.StatusUnauthorized,
	domain.KindInvalidToken:     http.StatusUnauthorized,
	domain.KindNotYetActive:     http.StatusUnauthorized,
	domain.KindExpired:          http.StatusUnauthorized,
	domain.KindInsufficientRole: http.StatusForbidden,
	domain.KindExchangeFailed:   http.StatusBadGateway,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps auth failures and user store errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "kind": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if challenge := bearerChallenge(domain.ErrorKind(resp.Kind)); challenge != "" {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, challenge)
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorResponse) {
	// Echo's own errors (bind failures, 404 from router, rate limiting, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, handler.ErrorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ae *domain.AuthError
	if errors.As(err, &ae) {
		code, ok := kindStatus[ae.Kind]
		if !ok {
			code = http.StatusInternalServerError
		}
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("kind", string(ae.Kind)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}
		return code, handler.ErrorResponse{Error: ae.Msg, Kind: string(ae.Kind)}
	}

	switch {
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, handler.ErrorResponse{Error: "user already exists"}
	case errors.Is(err, domain.ErrInvalidUser):
		return http.StatusBadRequest, handler.ErrorResponse{Error: "invalid user"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, handler.ErrorResponse{Error: "user not found"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.ErrorResponse{Error: "internal server error"}
}

// bearerChallenge returns the WWW-Authenticate value for token failures.
func bearerChallenge(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindMissingToken:
		return "Bearer"
	case domain.KindInvalidToken, domain.KindNotYetActive, domain.KindExpired:
		return `Bearer error="invalid_token"`
	case domain.KindInsufficientRole:
		return `Bearer error="insufficient_scope"`
	}
	return ""
}
