// Package app assembles a running marketcache from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/adeilh/marketcache/api"
	"github.com/adeilh/marketcache/auth"
	"github.com/adeilh/marketcache/cache"
	"github.com/adeilh/marketcache/config"
	"github.com/adeilh/marketcache/db/sql/postgres"
	"github.com/adeilh/marketcache/httpx"
	"github.com/adeilh/marketcache/metrics"
	"github.com/adeilh/marketcache/storage"
	"github.com/adeilh/marketcache/storage/memory"
	"github.com/adeilh/marketcache/storage/redis"
	"github.com/adeilh/marketcache/storage/remote"
)

type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    storage.Storage
	cache    *cache.Cache
	registry *prometheus.Registry
	closers  []func() error
}

// New opens the configured storage backend and builds the cache on top of it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	a := &App{cfg: cfg, log: log, registry: prometheus.NewRegistry()}

	if err := a.registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("app: register go collector: %w", err)
	}
	m, err := metrics.NewPrometheus(a.registry)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	store, closer, err := OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	a.store = store
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.cache = cache.New(store,
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(log),
		cache.WithMetrics(m),
	)
	return a, nil
}

func (a *App) Cache() *cache.Cache            { return a.cache }
func (a *App) Storage() storage.Storage       { return a.store }
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Server builds the HTTP server exposing the storage and cache routes.
func (a *App) Server() (*httpx.Server, error) {
	h := a.cfg.HTTP
	opts := []httpx.ServerOption{
		httpx.WithAddress(h.Address),
		httpx.WithTimeouts(h.ReadTimeout, h.WriteTimeout),
		httpx.WithLogger(a.log),
		httpx.WithRateLimit(h.RateLimit, h.RateBurst),
	}
	if len(h.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig
		cors.AllowOrigins = h.CORSOrigins
		opts = append(opts, httpx.WithCORS(&cors))
	}

	admin, err := auth.NewMiddleware(auth.NewAdminGuard(a.cfg.Admin.TokenHash))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if a.cfg.Admin.TokenHash == "" {
		a.log.Warn().Msg("admin token hash not set; cache sweep endpoint is disabled")
	}

	server := httpx.NewServer(opts...)
	server.RegisterRoutes(api.New(a.store, a.cache,
		api.WithAdmin(admin),
		api.WithGatherer(a.registry),
		api.WithLogger(a.log),
	).Register)
	return server, nil
}

// Serve sweeps stale entries once, then serves HTTP until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	removed := a.cache.Sweep(ctx)
	a.log.Info().Int("removed", removed).Msg("startup sweep finished")

	server, err := a.Server()
	if err != nil {
		return err
	}
	a.log.Info().Str("address", server.Address()).Str("backend", a.cfg.Storage.Backend).Msg("listening")
	err = server.Start(ctx, httpx.WithShutdownTimeout(a.cfg.HTTP.ShutdownTimeout))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStorage returns the backend selected by cfg and an optional closer.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.NewStore(memory.WithQuota(cfg.QuotaBytes)), nil, nil

	case config.BackendRedis:
		store := redis.NewStore(redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		return store, store.Close, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx,
			postgres.WithDSN(cfg.Postgres.DSN),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		if cfg.Postgres.Migrate {
			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("app: %w", err)
			}
			if len(applied) > 0 {
				log.Info().Ints64("versions", applied).Msg("applied storage migrations")
			}
		}
		return postgres.NewStorage(db), db.Close, nil

	case config.BackendRemote:
		store, err := remote.NewStore(cfg.Remote.URL,
			httpx.WithClientTimeout(cfg.Remote.Timeout),
			httpx.WithRetries(cfg.Remote.Retries),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("app: unknown storage backend %q", cfg.Backend)
	}
}
