// Package factory builds the service dependencies from configuration.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/config"
	"github.com/devshelf/devshelf/internal/kv"
	kvpg "github.com/devshelf/devshelf/internal/kv/postgres"
	kvsqlite "github.com/devshelf/devshelf/internal/kv/sqlite"
	"github.com/devshelf/devshelf/internal/localstate"
)

// NewKVStore returns the durable key space selected by cfg.DBDriver.
// Bootstrap runs synchronously: actors load their index blobs on first use,
// so the schema must exist before the server accepts traffic.
func NewKVStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (kv.Store, error) {
	bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
	bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	switch cfg.DBDriver {
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			var err error
			path, err = localstate.DBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve local data dir: %w", err)
			}
		}
		db, err := kvsqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
		}
		if err := kvsqlite.Bootstrap(bootstrapCtx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap sqlite: %w", err)
		}
		log.Info().Str("path", path).Msg("sqlite key space ready")
		return kvsqlite.New(db), nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("DEVSHELF_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err := kvpg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := kvpg.Bootstrap(bootstrapCtx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap postgres: %w", err)
		}
		log.Info().Msg("postgres key space ready")
		return kvpg.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
