package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/sessionvault/internal/artifact"
	"github.com/koopa0/sessionvault/internal/cache"
	"github.com/koopa0/sessionvault/internal/config"
	"github.com/koopa0/sessionvault/internal/event"
	"github.com/koopa0/sessionvault/internal/log"
	"github.com/koopa0/sessionvault/internal/manager"
	"github.com/koopa0/sessionvault/internal/security"
	"github.com/koopa0/sessionvault/internal/session"
	"github.com/koopa0/sessionvault/internal/statestore"
)

// App bundles the wired storage stack for command handlers. The CLI is
// a trusted administrative surface, so handlers authorize with shared
// isolation.
type App struct {
	Manager  *manager.SessionManager
	Security *security.Manager
	Logger   log.Logger
}

// adminContext returns a shared-isolation context for CLI operations
// on the given session.
func (a *App) adminContext(id uuid.UUID) security.Context {
	return a.Security.AuthorizeShared(id)
}

// buildApp assembles the state store, registry, artifact store, cache,
// event bus, and manager from configuration.
func buildApp(cfg *config.Config, logger log.Logger) (*App, func(), error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sessCache, err := cache.New[uuid.UUID, *session.Session](cfg.CacheCapacity)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	// Lifecycle notifications surface as structured logs; an external
	// bus subscriber would replace this sink.
	bus := event.NewAsyncBus(event.SinkFunc(func(n event.Notification) {
		logger.Info("lifecycle event",
			"type", n.Type,
			"session_id", n.SessionID,
			"metadata", n.Metadata,
		)
	}), cfg.EventBuffer, logger)

	secmgr := security.NewManager(logger.With("component", "security"))

	mgr, err := manager.New(manager.Config{
		Registry: session.NewRegistry(store, logger.With("component", "registry")),
		Artifacts: artifact.NewStore(store, artifact.Config{
			CompressionThreshold: int(cfg.CompressionThreshold),
			MaxArtifactSize:      cfg.MaxArtifactSize,
		}, logger.With("component", "artifacts")),
		Security: secmgr,
		Cache:    sessCache,
		Sink:     bus,
		Logger:   logger.With("component", "manager"),
	})
	if err != nil {
		bus.Close()
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		bus.Close()
		if err := store.Close(); err != nil {
			logger.Warn("closing state store", "error", err)
		}
	}

	return &App{Manager: mgr, Security: secmgr, Logger: logger}, cleanup, nil
}

// openStore opens the configured state store backend.
func openStore(cfg *config.Config, logger log.Logger) (statestore.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return statestore.NewSQLite(
			filepath.Join(cfg.DataDir, "sessionvault.db"),
			logger.With("component", "statestore"),
		)
	case config.BackendPostgres:
		pool, err := pgxpool.New(context.Background(), cfg.PostgresConnectionString())
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		return statestore.NewPostgres(context.Background(), pool, logger.With("component", "statestore"))
	case config.BackendMemory:
		logger.Warn("using volatile in-memory backend, data will not survive this process")
		return statestore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}
