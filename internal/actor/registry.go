package actor

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/devshelf/devshelf/internal/contentstore"
	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
	"github.com/devshelf/devshelf/internal/pages"
)

// Registry hands out one live actor per partition. Construction is coalesced
// so the index load runs exactly once however many callers race for a cold
// partition, and Get does not return until that load finished.
type Registry struct {
	store   kv.Store
	pages   *pages.Repository
	content contentstore.Store
	log     zerolog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	actors map[string]*Actor
}

func NewRegistry(store kv.Store, pageRepo *pages.Repository, content contentstore.Store, log zerolog.Logger) *Registry {
	return &Registry{
		store:   store,
		pages:   pageRepo,
		content: content,
		log:     log,
		actors:  make(map[string]*Actor),
	}
}

// Get returns the live actor for partition, constructing it on first use.
// A failed construction is not cached; the next caller retries.
func (r *Registry) Get(ctx context.Context, partition string) (*Actor, error) {
	if partition == "" {
		return nil, fmt.Errorf("partition required: %w", model.ErrValidation)
	}
	r.mu.RLock()
	a := r.actors[partition]
	r.mu.RUnlock()
	if a != nil {
		return a, nil
	}

	v, err, _ := r.group.Do(partition, func() (interface{}, error) {
		r.mu.RLock()
		existing := r.actors[partition]
		r.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		created, err := newActor(context.WithoutCancel(ctx), partition, r.store, r.pages, r.content, r.log)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.actors[partition] = created
		r.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, fmt.Errorf("initialize actor %s: %w", partition, err)
	}
	return v.(*Actor), nil
}
