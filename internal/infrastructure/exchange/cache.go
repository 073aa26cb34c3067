// Package exchange keeps a short-lived bearer token for an outbound
// dependency, obtained by exchanging long-lived credentials at a remote
// endpoint, and renews it before it expires.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/opsbridge/tokengate/internal/core/domain"
	"github.com/opsbridge/tokengate/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const maxResponseBody = 1 << 20

// Cache holds at most one exchanged token. Concurrent misses share a single
// exchange call; a miss that started before Invalidate is never reused after
// it.
type Cache struct {
	opts  Options
	log   zerolog.Logger
	group singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	gen       uint64
}

// NewCache validates opts and returns an empty cache.
func NewCache(opts Options) (*Cache, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Cache{
		opts: o,
		log:  o.Logger.With().Str("component", "exchange").Str("url", redactURL(o.URL)).Logger(),
	}, nil
}

// EnsureToken returns the cached token, exchanging credentials first when
// the cache is empty or expired.
func (c *Cache) EnsureToken(ctx context.Context) (string, error) {
	token, gen, ok := c.cached()
	if ok {
		metrics.ExchangeCacheTotal.WithLabelValues("hit").Inc()
		return token, nil
	}

	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), gen)
	})
	select {
	case <-ctx.Done():
		return "", domain.ErrExchangeFailed.Wrap(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next EnsureToken exchanges again.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.gen++
	c.mu.Unlock()

	if c.opts.Store != nil {
		if err := c.opts.Store.Clear(ctx); err != nil {
			c.log.Warn().Err(err).Msg("failed to clear shared exchange token")
		}
	}
}

// Decorate returns a copy of req carrying "Authorization: Bearer <token>".
func (c *Cache) Decorate(req *http.Request) (*http.Request, error) {
	token, err := c.EnsureToken(req.Context())
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out, nil
}

// ExpiresAt reports when the cached token stops being served. It is the zero
// time when nothing is cached.
func (c *Cache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

func (c *Cache) cached() (string, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.opts.Now().Before(c.expiresAt) {
		return c.token, c.gen, true
	}
	return "", c.gen, false
}

// refresh runs inside the singleflight group.
func (c *Cache) refresh(ctx context.Context, gen uint64) (string, error) {
	// A previous flight may have completed between our miss and joining.
	if token, _, ok := c.cached(); ok {
		return token, nil
	}

	if token, expiresAt, ok := c.loadShared(ctx); ok {
		metrics.ExchangeCacheTotal.WithLabelValues("store_hit").Inc()
		c.commit(gen, token, expiresAt)
		return token, nil
	}

	metrics.ExchangeCacheTotal.WithLabelValues("miss").Inc()
	token, expiresAt, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}
	c.commit(gen, token, expiresAt)

	if c.opts.Store != nil {
		if err := c.opts.Store.Save(ctx, token, expiresAt); err != nil {
			c.log.Warn().Err(err).Msg("failed to share exchanged token")
		}
	}
	return token, nil
}

func (c *Cache) commit(gen uint64, token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.token = token
	c.expiresAt = expiresAt
}

func (c *Cache) loadShared(ctx context.Context) (string, time.Time, bool) {
	if c.opts.Store == nil {
		return "", time.Time{}, false
	}
	token, expiresAt, err := c.opts.Store.Load(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read shared exchange token")
		return "", time.Time{}, false
	}
	if token == "" || !c.opts.Now().Before(expiresAt) {
		return "", time.Time{}, false
	}
	return token, expiresAt, true
}

// exchange performs one remote call. It never touches cache state.
func (c *Cache) exchange(ctx context.Context) (token string, expiresAt time.Time, err error) {
	start := time.Now()
	defer func() {
		metrics.ExchangeDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
			c.log.Warn().Err(err).Msg("credential exchange failed")
		}
		metrics.ExchangeRequestsTotal.WithLabelValues(result).Inc()
	}()

	req, err := c.newRequest(ctx)
	if err != nil {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(err)
	}
	resp, err := c.opts.Client.Do(req)
	if err != nil {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	r := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	token, err = c.opts.TokenExtractor(r)
	if err != nil {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(err)
	}
	if token == "" {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(errors.New("empty token"))
	}
	ttl, err := c.opts.ExpirationExtractor(r)
	if err != nil {
		return "", time.Time{}, domain.ErrExchangeFailed.Wrap(err)
	}

	expiresAt = c.opts.Now().Add(ttl - c.opts.ExpirationBuffer)
	c.log.Debug().Time("expires_at", expiresAt).Msg("credential exchange succeeded")
	return token, expiresAt, nil
}

func (c *Cache) newRequest(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(c.opts.QueryParams) > 0 {
		q := u.Query()
		for k, vs := range c.opts.QueryParams {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	jsonBody := false
	if c.opts.Body != nil && methodHasBody(c.opts.Method) {
		switch b := c.opts.Body.(type) {
		case []byte:
			body = bytes.NewReader(b)
		case string:
			body = bytes.NewReader([]byte(b))
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("encode body: %w", err)
			}
			body = bytes.NewReader(raw)
			jsonBody = true
		}
	}

	req, err := http.NewRequestWithContext(ctx, c.opts.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if jsonBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.Username != "" || c.opts.Password != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}
	return req, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
