package main

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/go-redis/redis/v8"

	"github.com/okian/scorekeep/internal/adapters/gcp"
	"github.com/okian/scorekeep/internal/adapters/identity"
	"github.com/okian/scorekeep/internal/adapters/ratelimit"
	"github.com/okian/scorekeep/internal/adapters/repository"
	"github.com/okian/scorekeep/internal/config"
)

// dependencies are the collaborators selected by configuration. close
// releases them in reverse order of construction.
type dependencies struct {
	store    repository.Store
	identity identity.Provider
	limiter  ratelimit.Limiter

	closers []func() error
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	var app *firebase.App
	if cfg.NeedsFirebase() {
		var err error
		if app, err = gcp.NewApp(ctx, cfg.FirebaseCredentialsFile, cfg.FirebaseProjectID); err != nil {
			return nil, err
		}
	}

	d := &dependencies{}
	store, err := newStore(ctx, cfg, app)
	if err != nil {
		return nil, err
	}
	d.store = repository.Instrument(store)
	d.closers = append(d.closers, d.store.Close)

	provider, err := newIdentity(ctx, cfg, app)
	if err != nil {
		d.close()
		return nil, err
	}
	d.identity = identity.Instrument(provider)

	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		d.close()
		return nil, err
	}
	d.limiter = limiter
	if closeLimiter != nil {
		d.closers = append(d.closers, closeLimiter)
	}
	return d, nil
}

func newStore(ctx context.Context, cfg *config.Config, app *firebase.App) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreMongo:
		return repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreFirestore:
		if app == nil {
			return nil, errors.New("firestore store requires a firebase app")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return repository.NewFirestoreStore(client), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

func newIdentity(ctx context.Context, cfg *config.Config, app *firebase.App) (identity.Provider, error) {
	switch cfg.IdentityDriver {
	case config.IdentityLocal:
		return identity.NewLocalProvider(cfg.LocalTokenSecret,
			identity.WithIssuer(cfg.LocalTokenIssuer),
			identity.WithTTL(cfg.LocalTokenTTL),
		)
	case config.IdentityFirebase:
		if app == nil {
			return nil, errors.New("firebase identity requires a firebase app")
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		return identity.NewFirebaseProvider(client), nil
	default:
		return nil, fmt.Errorf("%w: unknown identity_driver %q", config.ErrInvalidConfig, cfg.IdentityDriver)
	}
}

// newLimiter returns the configured limiter and, for networked drivers, a closer.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, func() error, error) {
	switch cfg.RateLimitDriver {
	case config.RateLimitMemory:
		l, err := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
		return l, nil, err
	case config.RateLimitToken:
		l, err := ratelimit.NewToken(cfg.RateLimitMax, cfg.RateLimitWindow)
		return l, nil, err
	case config.RateLimitRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		l, err := ratelimit.NewRedis(client, cfg.RateLimitMax, cfg.RateLimitWindow)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return l, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown rate_limit_driver %q", config.ErrInvalidConfig, cfg.RateLimitDriver)
	}
}
