package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore shares one exchanged token between replicas.
// Key format: exchange:token:<name>
type TokenStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

// NewTokenStore creates a TokenStore for the named upstream.
func NewTokenStore(client redis.Cmdable, name string) *TokenStore {
	return &TokenStore{client: client, key: "exchange:token:" + name, now: time.Now}
}

type storedToken struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Load returns an empty token when nothing is stored.
func (s *TokenStore) Load(ctx context.Context) (string, time.Time, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load exchange token: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return "", time.Time{}, fmt.Errorf("decode exchange token: %w", err)
	}
	return st.Token, time.UnixMilli(st.ExpiresAt), nil
}

// Save stores the token until expiresAt. Already expired tokens are not
// stored.
func (s *TokenStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(storedToken{Token: token, ExpiresAt: expiresAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode exchange token: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save exchange token: %w", err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear exchange token: %w", err)
	}
	return nil
}
