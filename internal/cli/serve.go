package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/opsbridge/tokengate/internal/api"
	"github.com/opsbridge/tokengate/internal/api/handler"
	"github.com/opsbridge/tokengate/internal/core/ports"
	"github.com/opsbridge/tokengate/internal/core/service"
	"github.com/opsbridge/tokengate/internal/infrastructure/config"
	"github.com/opsbridge/tokengate/internal/infrastructure/db/mongo"
	"github.com/opsbridge/tokengate/internal/infrastructure/db/redis"
	"github.com/opsbridge/tokengate/internal/infrastructure/exchange"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if !cfg.Secure() {
		a.log.Warn().Msg("JWT_SECRET is not set; token issue and verify requests will fail")
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	users := mongo.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	checks := []handler.ReadinessCheck{{
		Name:  "mongodb",
		Check: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks = append(checks, handler.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	if cfg.UpstreamEnabled() {
		cache, err := a.newExchangeCache(cfg.Upstream, rdb)
		if err != nil {
			return err
		}
		checks = append(checks, handler.ReadinessCheck{
			Name: "upstream_exchange",
			Check: func(ctx context.Context) error {
				_, err := cache.EnsureToken(ctx)
				return err
			},
		})
	}

	tokenCfg := service.TokenConfig{
		ApplicationType: cfg.Token.ApplicationType,
		Secret:          cfg.Token.Secret,
		Lifetime:        cfg.Token.Lifetime,
	}
	clock := ports.SystemClock{}

	e := api.NewRouter(api.Dependencies{
		Issuer:         service.NewTokenIssuer(users, tokenCfg, clock, a.log),
		Authorizer:     service.NewTokenAuthorizer(tokenCfg, clock),
		Users:          service.NewUserService(users, cfg.Token.ApplicationType, clock, a.log),
		Checks:         checks,
		TokenRateLimit: cfg.Token.RateLimit,
		TokenRateBurst: cfg.Token.RateBurst,
		Log:            a.log,
	})

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("port", cfg.Port).
			Str("application_type", cfg.Token.ApplicationType).
			Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func (a *app) newExchangeCache(cfg config.UpstreamConfig, rdb *goredis.Client) (*exchange.Cache, error) {
	opts := exchange.Options{
		Method:           cfg.Method,
		URL:              cfg.URL,
		Username:         cfg.Username,
		Password:         cfg.Password,
		ExpirationBuffer: cfg.ExpirationBuffer,
		Logger:           &a.log,
	}
	if rdb != nil {
		opts.Store = redis.NewTokenStore(rdb, "upstream")
	}
	return exchange.NewCache(opts)
}
