package directoryservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/actor"
	"github.com/devshelf/devshelf/internal/api"
	"github.com/devshelf/devshelf/internal/background"
	"github.com/devshelf/devshelf/internal/cache"
	"github.com/devshelf/devshelf/internal/config"
	"github.com/devshelf/devshelf/internal/contentstore"
	"github.com/devshelf/devshelf/internal/facade"
	"github.com/devshelf/devshelf/internal/factory"
	"github.com/devshelf/devshelf/internal/health"
	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/logger"
	"github.com/devshelf/devshelf/internal/pages"
	"github.com/devshelf/devshelf/internal/searchengine"
	"github.com/devshelf/devshelf/internal/useractor"
)

// Run starts the directory service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("devshelf-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("partition", cfg.Partition).
		Msg("Directory service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	// Initialize dependencies (key space, cache, collaborators)
	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Assemble the service and router
	pageRepo := pages.NewRepository(deps.store, deps.scraper, deps.safety, log)
	content := contentstore.New(deps.store, log)
	actors := actor.NewRegistry(deps.store, pageRepo, content, log)
	users := useractor.New(deps.store, log)
	tasks := background.NewRunner(log, time.Duration(cfg.TaskTimeoutSeconds)*time.Second)
	f := facade.New(actors, users, deps.cache, content, deps.search, tasks, log)
	router := api.NewRouter(f, cfg.Partition, log)

	// Start health checkers and bind service health
	svcHealth := startHealthCheckers(ctx, cfg, log, deps)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// HTTP server and serve
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		// Let queued view counts and cache fills land before exit
		tasks.Wait()
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type dependencies struct {
	store   kv.Store
	cache   cache.Cache
	scraper *pages.HTTPScraper
	safety  pages.SafetyChecker
	search  searchengine.Engine
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, err := factory.NewKVStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Key space unavailable")
		return nil, err
	}

	c, err := factory.NewCache(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Edge cache unavailable")
		return nil, err
	}

	scraper, err := factory.NewScraper(cfg)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Scraper unavailable")
		return nil, err
	}

	return &dependencies{
		store:   st,
		cache:   c,
		scraper: scraper,
		safety:  factory.NewSafetyChecker(cfg, log),
		search:  factory.NewSearchEngine(cfg, log),
	}, nil
}

// startHealthCheckers starts component checkers and the service-level
// aggregator, then binds the health endpoint. Safety and search are not
// gated: both degrade gracefully when their endpoint is down.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.HealthChecker
	watch := func(name string, component interface{}) {
		pinger, ok := component.(health.HealthPinger)
		if !ok {
			log.Warn().Str("checker", name).Msg("component exposes no health probe")
			return
		}
		c := health.NewPingChecker(name, pinger, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}
	watch("kv-store", deps.store)
	watch("cache", deps.cache)
	watch("scraper", deps.scraper)

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Checkers start unhealthy and need at least one probe cycle
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
