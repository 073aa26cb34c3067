// Package config loads tokengate settings from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Token    TokenConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Upstream UpstreamConfig
}

// TokenConfig configures the inbound token issuer and authorizer.
type TokenConfig struct {
	// Secret has no default: an empty secret makes every issue and authorize
	// call fail with a configuration error.
	Secret          string  `env:"JWT_SECRET"`
	Lifetime        string  `env:"TOKEN_LIFETIME,   default=1h"`
	ApplicationType string  `env:"APPLICATION_TYPE, default=default"`
	RateLimit       float64 `env:"TOKEN_RATE_LIMIT, default=5"`
	RateBurst       int     `env:"TOKEN_RATE_BURST, default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=tokengate"`
}

// RedisConfig configures the shared exchange token store. Redis is not used
// when Addr is empty.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// UpstreamConfig configures the outbound credential exchange. It is disabled
// when URL is empty.
type UpstreamConfig struct {
	URL              string        `env:"UPSTREAM_EXCHANGE_URL"`
	Method           string        `env:"UPSTREAM_EXCHANGE_METHOD,   default=POST"`
	Username         string        `env:"UPSTREAM_USERNAME"`
	Password         string        `env:"UPSTREAM_PASSWORD"`
	ExpirationBuffer time.Duration `env:"UPSTREAM_EXPIRATION_BUFFER, default=60s"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Secure reports whether a signing secret is configured.
func (c *Config) Secure() bool {
	return c.Token.Secret != ""
}

// UpstreamEnabled reports whether the credential exchange is configured.
func (c *Config) UpstreamEnabled() bool {
	return c.Upstream.URL != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
