package domain

import "errors"

// ErrorKind classifies an authentication or authorization failure.
type ErrorKind string

const (
	KindConfig           ErrorKind = "config_error"
	KindMalformedRequest ErrorKind = "malformed_request"
	KindNotFound         ErrorKind = "not_found"
	KindInactive         ErrorKind = "inactive"
	KindBadCredentials   ErrorKind = "bad_credentials"
	KindMissingToken     ErrorKind = "missing_token"
	KindInvalidToken     ErrorKind = "invalid_token"
	KindNotYetActive     ErrorKind = "not_yet_active"
	KindExpired          ErrorKind = "expired"
	KindInsufficientRole ErrorKind = "insufficient_role"
	KindExchangeFailed   ErrorKind = "exchange_failed"
)

// AuthError is an expected failure of the token core. Two AuthErrors match
// under errors.Is when their kinds are equal, so a wrapped variant carrying
// a cause still matches the package sentinel.
type AuthError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// Wrap returns a copy of e carrying cause.
func (e *AuthError) Wrap(cause error) *AuthError {
	return &AuthError{Kind: e.Kind, Msg: e.Msg, Err: cause}
}

var (
	ErrConfig           = &AuthError{Kind: KindConfig, Msg: "signing secret is not configured"}
	ErrMalformedRequest = &AuthError{Kind: KindMalformedRequest, Msg: "malformed credentials header"}
	ErrNotFound         = &AuthError{Kind: KindNotFound, Msg: "user not found"}
	ErrInactive         = &AuthError{Kind: KindInactive, Msg: "user is inactive"}
	ErrBadCredentials   = &AuthError{Kind: KindBadCredentials, Msg: "invalid credentials"}
	ErrMissingToken     = &AuthError{Kind: KindMissingToken, Msg: "missing authorization header"}
	ErrInvalidToken     = &AuthError{Kind: KindInvalidToken, Msg: "invalid token"}
	ErrNotYetActive     = &AuthError{Kind: KindNotYetActive, Msg: "token is not active yet"}
	ErrExpired          = &AuthError{Kind: KindExpired, Msg: "token expired"}
	ErrInsufficientRole = &AuthError{Kind: KindInsufficientRole, Msg: "insufficient role"}
	ErrExchangeFailed   = &AuthError{Kind: KindExchangeFailed, Msg: "credential exchange failed"}
)

// KindOf returns the kind of the first AuthError in err's chain, or "" when
// err is not an AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
