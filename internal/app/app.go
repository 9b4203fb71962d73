// Package app wires the roster store, credential verifier and event
// publisher from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/roster/internal/auth"
	"github.com/felixgeelhaar/roster/internal/config"
	"github.com/felixgeelhaar/roster/internal/queue"
	"github.com/felixgeelhaar/roster/internal/roster"
	"github.com/felixgeelhaar/roster/internal/storage/postgres"
	rosterredis "github.com/felixgeelhaar/roster/internal/storage/redis"
	"github.com/felixgeelhaar/roster/internal/storage/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoUsers is returned when the static verifier has no configured users.
var ErrNoUsers = errors.New("no users configured; run 'roster init'")

// App holds all application dependencies
type App struct {
	Config   *config.LocalConfig
	Store    *roster.Store
	Verifier auth.Verifier
	Sessions *auth.Sessions

	// Location names where the roster is persisted: a file path, a Redis key
	// or a PostgreSQL row.
	Location string

	// Notifier is nil unless events are enabled.
	Notifier *queue.ResilientNotifier

	closers []func() error
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config *config.LocalConfig

	// Dir is the roster data directory, normally ~/.roster.
	Dir string

	// RequireUsers fails startup when the static verifier has no users.
	RequireUsers bool
}

// NewApp opens the configured backend, loads the roster and wires the
// verifier and event publisher. A corrupt roster aborts startup.
func NewApp(ctx context.Context, cfg AppConfig) (*App, error) {
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg.Config}

	var pool *pgxpool.Pool
	needsPostgres := cfg.Config.Storage.Backend == config.BackendPostgres ||
		cfg.Config.Auth.Verifier == config.VerifierPostgres
	if needsPostgres {
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.Config.Storage.Postgres.URL
		if cfg.Config.Storage.Postgres.MaxConns > 0 {
			pgCfg.MaxConns = cfg.Config.Storage.Postgres.MaxConns
		}
		p, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pool = p
		a.onClose(func() error { p.Close(); return nil })
	}

	persister, err := a.openPersister(ctx, cfg, pool)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := roster.Open(ctx, persister)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	a.Verifier, err = newVerifier(cfg, pool)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sessions = auth.NewSessions(a.Verifier)

	if cfg.Config.Events.Enabled {
		if err := a.startEvents(); err != nil {
			a.Close()
			return nil, err
		}
	}

	slog.Info("roster loaded",
		"backend", cfg.Config.Storage.Backend,
		"location", a.Location,
		"students", store.Len(),
		"verifier", cfg.Config.Auth.Verifier,
		"events", cfg.Config.Events.Enabled,
	)
	return a, nil
}

func (a *App) openPersister(ctx context.Context, cfg AppConfig, pool *pgxpool.Pool) (roster.Persister, error) {
	storage := cfg.Config.Storage

	switch storage.Backend {
	case config.BackendFile:
		p, err := roster.NewFilePersister(cfg.Config.FileDir(cfg.Dir))
		if err != nil {
			return nil, err
		}
		a.Location = p.Path()
		return p, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Config.SQLitePath(cfg.Dir))
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		a.Location = db.Path()
		return sqlite.NewRosterStore(db), nil

	case config.BackendRedis:
		redisCfg := rosterredis.DefaultConfig()
		redisCfg.Addr = storage.Redis.Addr
		redisCfg.Password = storage.Redis.Password
		redisCfg.DB = storage.Redis.DB
		if storage.Redis.Prefix != "" {
			redisCfg.Prefix = storage.Redis.Prefix
		}
		client, err := rosterredis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		a.onClose(client.Close)
		store := rosterredis.NewRosterStore(client, redisCfg.Prefix)
		a.Location = fmt.Sprintf("redis://%s/%d %s", redisCfg.Addr, redisCfg.DB, store.Key())
		return store, nil

	case config.BackendPostgres:
		store := postgres.NewRosterStore(pool)
		a.Location = store.Location()
		return store, nil
	}

	return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, storage.Backend)
}

func newVerifier(cfg AppConfig, pool *pgxpool.Pool) (auth.Verifier, error) {
	if cfg.Config.Auth.Verifier == config.VerifierPostgres {
		return auth.NewPostgresVerifier(pool), nil
	}

	v := auth.NewStaticVerifier(cfg.Config.Auth.Hashes)
	if v.Users() == 0 {
		if cfg.RequireUsers {
			return nil, ErrNoUsers
		}
		slog.Warn("no users configured, every login will be rejected")
	}
	return v, nil
}

func (a *App) startEvents() error {
	conn, err := queue.NewConnection(a.Config.Events.AMQPURL)
	if err != nil {
		return fmt.Errorf("connect events broker: %w", err)
	}
	a.onClose(conn.Close)

	rc := queue.DefaultResilientConfig()
	if a.Config.Events.Buffer > 0 {
		rc.Buffer = a.Config.Events.Buffer
	}
	a.Notifier = queue.NewResilientNotifier(queue.NewPublisher(conn), rc)
	a.onClose(func() error { a.Notifier.Close(); return nil })

	a.Store.SetNotifier(a.Notifier)
	return nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
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
