package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	// DefaultExpirationBuffer is subtracted from the reported lifetime so the
	// token is renewed before the remote side starts rejecting it.
	DefaultExpirationBuffer = 60 * time.Second
	// DefaultExpiration applies when the response carries no expiry.
	DefaultExpiration = 3600 * time.Second

	defaultTimeout = 10 * time.Second
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the exchange endpoint reply handed to the extractors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// TokenExtractor pulls the bearer token out of an exchange response.
type TokenExtractor func(*Response) (string, error)

// ExpirationExtractor returns how long the exchanged token stays valid.
type ExpirationExtractor func(*Response) (time.Duration, error)

// Store shares exchanged tokens between processes. Load returns an empty
// token when nothing is stored.
type Store interface {
	Load(ctx context.Context) (token string, expiresAt time.Time, err error)
	Save(ctx context.Context, token string, expiresAt time.Time) error
	Clear(ctx context.Context) error
}

// Options configures a Cache.
type Options struct {
	// Method is the HTTP verb of the exchange call. Defaults to POST.
	Method string `validate:"omitempty,oneof=GET POST PUT PATCH"`
	// URL is the exchange endpoint.
	URL string `validate:"required,url"`

	// Username and Password are sent as Basic credentials when either is set.
	Username string
	Password string

	QueryParams url.Values
	Headers     http.Header
	// Body is sent for POST, PUT and PATCH. []byte and string are sent as
	// is; anything else is JSON encoded.
	Body any `validate:"-"`

	TokenExtractor      TokenExtractor
	ExpirationExtractor ExpirationExtractor
	// ExpirationBuffer defaults to DefaultExpirationBuffer when zero.
	ExpirationBuffer time.Duration `validate:"gte=0"`

	Client Doer             `validate:"-"`
	Store  Store            `validate:"-"`
	Now    func() time.Time `validate:"-"`
	Logger *zerolog.Logger  `validate:"-"`
}

var validate = validator.New()

func (o Options) withDefaults() (Options, error) {
	o.Method = strings.ToUpper(strings.TrimSpace(o.Method))
	if err := validate.Struct(o); err != nil {
		return o, fmt.Errorf("exchange options: %w", err)
	}
	if o.Method == "" {
		o.Method = http.MethodPost
	}
	if o.TokenExtractor == nil {
		o.TokenExtractor = DefaultTokenExtractor
	}
	if o.ExpirationExtractor == nil {
		o.ExpirationExtractor = DefaultExpirationExtractor
	}
	if o.ExpirationBuffer == 0 {
		o.ExpirationBuffer = DefaultExpirationBuffer
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: defaultTimeout}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o, nil
}

func methodHasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
