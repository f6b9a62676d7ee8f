package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/cache"
	"github.com/devshelf/devshelf/internal/config"
)

// NewCache returns the edge cache. A configured Redis address selects the
// shared cache; otherwise reads are cached per process.
func NewCache(cfg *config.Config, log zerolog.Logger) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("no redis configured; using in-process cache")
		return cache.NewMemory(), nil
	}

	client, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache ready")
	return cache.NewRedis(client), nil
}
