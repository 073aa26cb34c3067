package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// envelope is the conventional {"data": {"token": ..., "expiresIn": ...}}
// reply; expiresIn is in seconds.
type envelope struct {
	Data struct {
		Token     string   `json:"token"`
		ExpiresIn *float64 `json:"expiresIn"`
	} `json:"data"`
}

func decodeEnvelope(r *Response) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("decode exchange response: %w", err)
	}
	return &env, nil
}

// DefaultTokenExtractor reads data.token.
func DefaultTokenExtractor(r *Response) (string, error) {
	env, err := decodeEnvelope(r)
	if err != nil {
		return "", err
	}
	if env.Data.Token == "" {
		return "", errors.New("exchange response has no data.token")
	}
	return env.Data.Token, nil
}

// DefaultExpirationExtractor reads data.expiresIn as seconds and falls back
// to DefaultExpiration when it is absent.
func DefaultExpirationExtractor(r *Response) (time.Duration, error) {
	env, err := decodeEnvelope(r)
	if err != nil {
		return 0, err
	}
	if env.Data.ExpiresIn == nil {
		return DefaultExpiration, nil
	}
	return time.Duration(*env.Data.ExpiresIn * float64(time.Second)), nil
}
