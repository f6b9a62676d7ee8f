package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/config"
	"github.com/devshelf/devshelf/internal/pages"
	"github.com/devshelf/devshelf/internal/searchengine"
)

// NewScraper returns the page metadata collaborator. It is required; submit
// and refresh cannot run without it.
func NewScraper(cfg *config.Config) (*pages.HTTPScraper, error) {
	if cfg.ScraperURL == "" {
		return nil, fmt.Errorf("DEVSHELF_SCRAPER_URL is required")
	}
	return pages.NewHTTPScraper(cfg.ScraperURL), nil
}

// NewSafetyChecker returns the content safety collaborator. Without a
// configured endpoint every submission is treated as safe.
func NewSafetyChecker(cfg *config.Config, log zerolog.Logger) pages.SafetyChecker {
	if cfg.SafetyURL == "" {
		log.Warn().Msg("no safety checker configured; all submissions pass")
		return pages.Permissive{}
	}
	return pages.NewHTTPSafetyChecker(cfg.SafetyURL)
}

// NewSearchEngine returns the search collaborator. Without a configured
// endpoint search requests report the feature as unavailable.
func NewSearchEngine(cfg *config.Config, log zerolog.Logger) searchengine.Engine {
	if cfg.SearchURL == "" {
		log.Info().Msg("no search engine configured; search is disabled")
		return searchengine.Disabled{}
	}
	return searchengine.NewHTTPEngine(cfg.SearchURL)
}
