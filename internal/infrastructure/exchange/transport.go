package exchange

import (
	"io"
	"net/http"
	"time"
)

// Transport authenticates outgoing requests with a Cache. When the remote
// side answers 401 it invalidates the cache and retries once, provided the
// request body can be replayed.
type Transport struct {
	Cache *Cache
	Base  http.RoundTripper
}

// NewHTTPClient returns a client whose requests are authenticated by cache.
func NewHTTPClient(cache *Cache, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Cache: cache},
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	authed, err := t.Cache.Decorate(req)
	if err != nil {
		closeBody(req)
		return nil, err
	}
	resp, err := t.base().RoundTrip(authed)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The token was rejected whether or not the request can be retried.
	t.Cache.Invalidate(req.Context())

	retry, ok := replayable(req)
	if !ok {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	resp.Body.Close()

	authed, err = t.Cache.Decorate(retry)
	if err != nil {
		closeBody(retry)
		return nil, err
	}
	return t.base().RoundTrip(authed)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func replayable(req *http.Request) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out := req.Clone(req.Context())
	out.Body = body
	return out, true
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
