// @title                       Customer Identity API
// @version                     1.0
// @description                 User management and token issuance for ThAmCo customers and staff.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/thamco/customer-identity/docs"
	"github.com/thamco/customer-identity/internal/api"
	"github.com/thamco/customer-identity/internal/core/domain"
	"github.com/thamco/customer-identity/internal/core/ports"
	"github.com/thamco/customer-identity/internal/core/service"
	"github.com/thamco/customer-identity/internal/infrastructure/db/memory"
	"github.com/thamco/customer-identity/internal/infrastructure/db/mongo"
	"github.com/thamco/customer-identity/internal/infrastructure/db/redis"
	"github.com/thamco/customer-identity/internal/infrastructure/http/handlers"
	"github.com/thamco/customer-identity/internal/pkg/config"
	"github.com/thamco/customer-identity/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("identity-api stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "identity-api",
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	store := mongo.NewUserStore(db, cfg.PasswordPolicy())
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := store.SeedRoles(ctx); err != nil {
		return err
	}

	checks := map[string]handlers.Checker{"mongodb": mongo.Pinger(mongoClient)}

	var lockout ports.LockoutStore
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, sign-in lockout is kept in process memory")
		lockout = memory.NewLockoutStore()
	} else {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		lockout = redis.NewLockoutStore(rdb)
		checks["redis"] = redis.Pinger(rdb)
	}

	clients, err := service.NewClientRegistry(domain.DefaultClients(), cfg.Token.Clients)
	if err != nil {
		return err
	}
	if len(clients.IDs()) == 0 {
		log.Warn().Msg("no OAUTH_CLIENT_SECRETS configured, the token endpoint will reject every client")
	}

	tokens := service.NewTokenService(store, clients, lockout, service.TokenOptions{
		Secret:            cfg.Token.Secret,
		Issuer:            cfg.Token.Issuer,
		TTL:               cfg.Token.TTL,
		MaxFailedAttempts: cfg.Lockout.MaxFailedAttempts,
		LockoutDuration:   cfg.Lockout.Duration,
	}, log)

	e := api.NewRouter(api.Dependencies{
		Users:     service.NewUserRepository(store, log),
		Tokens:    tokens,
		Checks:    checks,
		JWTSecret: cfg.Token.Secret,
		Issuer:    cfg.Token.Issuer,
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Strs("clients", clients.IDs()).Msg("identity-api listening")
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

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
