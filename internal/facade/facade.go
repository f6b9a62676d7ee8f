// Package facade is the per-request coordinator in front of the resource
// actors, the user service, the content store and the edge cache. It owns
// the cache policy; the actors never touch the cache themselves.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/actor"
	"github.com/devshelf/devshelf/internal/background"
	"github.com/devshelf/devshelf/internal/cache"
	"github.com/devshelf/devshelf/internal/contentstore"
	"github.com/devshelf/devshelf/internal/model"
	"github.com/devshelf/devshelf/internal/searchengine"
	"github.com/devshelf/devshelf/internal/useractor"
)

// Cache policy. Entries are advisory; every TTL bounds staleness, the
// invalidations below just tighten it for the hot paths.
const (
	resourceListKey = "resources"
	userListKey     = "users"

	userTTL         = 3 * time.Hour
	resourceTTL     = 5 * time.Minute
	resourceListTTL = 5 * time.Minute
	userListTTL     = time.Minute
)

func resourceKey(id string) string { return "resources/" + id }
func userKey(id string) string     { return "users/" + id }

type Facade struct {
	actors  *actor.Registry
	users   useractor.Service
	cache   cache.Cache
	content contentstore.Store
	search  searchengine.Engine
	tasks   *background.Runner
	log     zerolog.Logger
}

func New(actors *actor.Registry, users useractor.Service, c cache.Cache, content contentstore.Store, search searchengine.Engine, tasks *background.Runner, log zerolog.Logger) *Facade {
	return &Facade{
		actors:  actors,
		users:   users,
		cache:   c,
		content: content,
		search:  search,
		tasks:   tasks,
		log:     log,
	}
}

// Submit publishes a URL through the partition's actor. A submission that
// reaches PUBLISHED invalidates the resource listing.
func (f *Facade) Submit(ctx context.Context, partition, userID, url string) (*model.SubmitResult, error) {
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return nil, f.fail("submit", err)
	}
	res, err := a.Submit(ctx, userID, url)
	if err != nil {
		return nil, f.fail("submit", err)
	}
	if res.Status == model.SubmitPublished {
		f.invalidate(resourceListKey)
	}
	return res, nil
}

// Refresh re-scrapes a resource and drops its cached detail record.
func (f *Facade) Refresh(ctx context.Context, partition, userID, resourceID string) (bool, error) {
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return false, f.fail("refresh", err)
	}
	ok, err := a.Refresh(ctx, userID, resourceID)
	if err != nil {
		return false, f.fail("refresh", err)
	}
	if ok {
		f.invalidate(resourceKey(resourceID))
	}
	return ok, nil
}

// Query returns one resource, consulting the cache first. The cache fill
// after a miss happens off the request path.
func (f *Facade) Query(ctx context.Context, partition, resourceID string) (*model.Resource, error) {
	if raw, ok := f.cached(ctx, resourceKey(resourceID)); ok {
		var res model.Resource
		if err := json.Unmarshal(raw, &res); err == nil {
			return &res, nil
		}
	}
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return nil, f.fail("query", err)
	}
	res, err := a.GetDetails(ctx, resourceID)
	if err != nil {
		return nil, f.fail("query", err)
	}
	f.fill(resourceKey(resourceID), res, resourceTTL)
	return res, nil
}

// ListResources returns the denormalized listing, newest first.
func (f *Facade) ListResources(ctx context.Context) ([]model.ResourceMetadata, error) {
	if raw, ok := f.cached(ctx, resourceListKey); ok {
		var list []model.ResourceMetadata
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	list, err := f.content.ListMetadata(ctx)
	if err != nil {
		return nil, f.fail("listResources", err)
	}
	f.fill(resourceListKey, list, resourceListTTL)
	return list, nil
}

// Search forwards the query to the search collaborator and hydrates the
// hits from the content store, dropping ids that no longer resolve.
func (f *Facade) Search(ctx context.Context, query string, limit int) ([]model.ResourceMetadata, error) {
	hits, err := f.search.Search(ctx, query, limit)
	if err != nil {
		return nil, f.fail("search", err)
	}
	out := make([]model.ResourceMetadata, 0, len(hits))
	for _, hit := range hits {
		res, err := f.content.GetResource(ctx, hit.ResourceID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, f.fail("search", err)
		}
		out = append(out, *model.BuildMetadata(res))
	}
	return out, nil
}

// View bumps the resource counter and, off the request path, records the
// view on the user profile.
func (f *Facade) View(ctx context.Context, partition, userID, resourceID string) (bool, error) {
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return false, f.fail("view", err)
	}
	ok, err := a.View(ctx, resourceID)
	if err != nil {
		return false, f.fail("view", err)
	}
	if ok && userID != "" {
		f.tasks.Submit("record view", func(ctx context.Context) error {
			if err := f.users.RecordView(ctx, userID, resourceID); err != nil {
				return err
			}
			return f.cache.Remove(ctx, userKey(userID))
		})
	}
	return ok, nil
}

// Bookmark records the bookmark on the resource and mirrors it onto the
// user profile in the background.
func (f *Facade) Bookmark(ctx context.Context, partition, userID, resourceID string) (bool, error) {
	return f.setBookmark(ctx, partition, userID, resourceID, true)
}

func (f *Facade) Unbookmark(ctx context.Context, partition, userID, resourceID string) (bool, error) {
	return f.setBookmark(ctx, partition, userID, resourceID, false)
}

func (f *Facade) setBookmark(ctx context.Context, partition, userID, resourceID string, bookmarked bool) (bool, error) {
	op := "bookmark"
	if !bookmarked {
		op = "unbookmark"
	}
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return false, f.fail(op, err)
	}
	var ok bool
	if bookmarked {
		ok, err = a.Bookmark(ctx, userID, resourceID)
	} else {
		ok, err = a.Unbookmark(ctx, userID, resourceID)
	}
	if err != nil {
		return false, f.fail(op, err)
	}
	if ok {
		f.tasks.Submit(op+" user profile", func(ctx context.Context) error {
			if err := f.users.SetBookmark(ctx, userID, resourceID, bookmarked); err != nil {
				return err
			}
			return f.cache.Remove(ctx, userKey(userID))
		})
	}
	return ok, nil
}

// BackupResources dumps the partition's raw key space verbatim.
func (f *Facade) BackupResources(ctx context.Context, partition string) (map[string]json.RawMessage, error) {
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return nil, f.fail("backupResources", err)
	}
	dump, err := a.Backup(ctx)
	if err != nil {
		return nil, f.fail("backupResources", err)
	}
	return dump, nil
}

// RestoreResources overwrites the partition from a dump and drops the
// listing cache entry.
func (f *Facade) RestoreResources(ctx context.Context, partition string, data map[string]json.RawMessage) error {
	a, err := f.actors.Get(ctx, partition)
	if err != nil {
		return f.fail("restoreResources", err)
	}
	if err := a.Restore(ctx, data); err != nil {
		return f.fail("restoreResources", err)
	}
	f.invalidate(resourceListKey)
	return nil
}

// GetUser returns a profile, cached for hours: profiles change rarely and
// every mutation path invalidates the entry anyway.
func (f *Facade) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if raw, ok := f.cached(ctx, userKey(userID)); ok {
		var u model.User
		if err := json.Unmarshal(raw, &u); err == nil {
			return &u, nil
		}
	}
	u, err := f.users.Get(ctx, userID)
	if err != nil {
		return nil, f.fail("getUser", err)
	}
	f.fill(userKey(userID), u, userTTL)
	return u, nil
}

func (f *Facade) ListUsers(ctx context.Context) ([]model.User, error) {
	if raw, ok := f.cached(ctx, userListKey); ok {
		var list []model.User
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	list, err := f.users.List(ctx)
	if err != nil {
		return nil, f.fail("listUsers", err)
	}
	f.fill(userListKey, list, userListTTL)
	return list, nil
}

func (f *Facade) BackupUser(ctx context.Context, userID string) (json.RawMessage, error) {
	raw, err := f.users.Backup(ctx, userID)
	if err != nil {
		return nil, f.fail("backupUser", err)
	}
	return raw, nil
}

func (f *Facade) RestoreUser(ctx context.Context, userID string, data json.RawMessage) error {
	if err := f.users.Restore(ctx, userID, data); err != nil {
		return f.fail("restoreUser", err)
	}
	f.invalidate(userKey(userID))
	return nil
}

// Tasks exposes the background runner so the service can drain it on
// shutdown.
func (f *Facade) Tasks() *background.Runner {
	return f.tasks
}

// fail logs a failed operation and hands the error back unchanged. Expected
// outcomes (absent records, rejected input) log quieter than real failures.
func (f *Facade) fail(op string, err error) error {
	evt := f.log.Error()
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
		evt = f.log.Debug()
	}
	evt.Err(err).Str("op", op).Msg("facade operation failed")
	return err
}

// cached reads the edge cache, treating errors as misses.
func (f *Facade) cached(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := f.cache.Match(ctx, key)
	if err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	return raw, ok
}

// fill writes a cache entry off the request path.
func (f *Facade) fill(key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	f.tasks.Submit("cache fill "+key, func(ctx context.Context) error {
		return f.cache.Update(ctx, key, raw, ttl)
	})
}

// invalidate drops a cache entry off the request path.
func (f *Facade) invalidate(key string) {
	f.tasks.Submit("cache invalidate "+key, func(ctx context.Context) error {
		return f.cache.Remove(ctx, key)
	})
}
