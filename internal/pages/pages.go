// Package pages owns the scraped page representations keyed by URL and the
// contracts of the scrape-stage collaborators.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

// Scraper renders a URL and extracts its metadata. Implementations report
// the canonical URL in Page.URL; the safety verdict is filled in here.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.Page, error)
}

// SafetyChecker reports whether a URL is safe to publish.
type SafetyChecker interface {
	Check(ctx context.Context, url string) (bool, error)
}

// partition is the kv partition holding page representations.
const partition = "pages"

// Repository is a cached read-through over the scrape stage. Pages persist
// keyed by the URL they were requested under, and additionally under their
// canonical URL when the two differ, so either key resolves the same page.
type Repository struct {
	store   kv.Store
	scraper Scraper
	safety  SafetyChecker
	log     zerolog.Logger
}

func NewRepository(store kv.Store, scraper Scraper, safety SafetyChecker, log zerolog.Logger) *Repository {
	return &Repository{store: store, scraper: scraper, safety: safety, log: log}
}

// Resolve returns the persisted page for url, scraping on a miss. A malformed
// stored record reads as absent and is rebuilt by a fresh scrape.
func (r *Repository) Resolve(ctx context.Context, url string) (*model.Page, error) {
	p, err := r.lookup(ctx, url)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	return r.Refresh(ctx, url)
}

// Refresh always re-scrapes and re-checks url, running both collaborators
// concurrently, then persists the merged page. When the canonical URL moved,
// the prior key stays as an alias and the refreshed page lands under both.
func (r *Repository) Refresh(ctx context.Context, url string) (*model.Page, error) {
	var (
		page *model.Page
		safe bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := r.scraper.Scrape(gctx, url)
		if err != nil {
			return fmt.Errorf("scrape %s: %w", url, err)
		}
		page = p
		return nil
	})
	g.Go(func() error {
		s, err := r.safety.Check(gctx, url)
		if err != nil {
			return fmt.Errorf("safety check %s: %w", url, err)
		}
		safe = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page.SchemaVersion = model.SchemaVersion
	page.IsSafe = safe
	page.ScrapedAt = time.Now().UTC()
	if page.URL == "" {
		page.URL = url
	}

	if err := r.persist(ctx, url, page); err != nil {
		return nil, err
	}
	if page.URL != url {
		if err := r.persist(ctx, page.URL, page); err != nil {
			return nil, err
		}
		r.log.Info().Str("requested", url).Str("canonical", page.URL).Msg("canonical URL moved, alias kept")
	}
	return page, nil
}

func (r *Repository) lookup(ctx context.Context, url string) (*model.Page, error) {
	raw, err := r.store.Get(ctx, partition, url)
	if err != nil {
		return nil, err
	}
	var p model.Page
	if err := json.Unmarshal(raw, &p); err != nil || p.SchemaVersion != model.SchemaVersion || p.URL == "" {
		// decode fails closed: a record we cannot trust reads as absent
		return nil, fmt.Errorf("page %s: %w", url, model.ErrNotFound)
	}
	return &p, nil
}

func (r *Repository) persist(ctx context.Context, key string, p *model.Page) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", key, err)
	}
	return r.store.Put(ctx, partition, key, raw)
}
