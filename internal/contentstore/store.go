// Package contentstore persists denormalized resources with their listing
// sidecars, serving list and detail reads outside the actor partitions.
package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

const (
	partition = "content"
	keyPrefix = "resources/"
)

// Store holds the denormalized read models. Sidecars are never hand-edited;
// PutResource rebuilds them from the resource on every write.
type Store interface {
	PutResource(ctx context.Context, res *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	ListMetadata(ctx context.Context) ([]model.ResourceMetadata, error)
}

// envelope couples a resource with its metadata sidecar under one key.
type envelope struct {
	SchemaVersion int                     `json:"schemaVersion"`
	Resource      *model.Resource         `json:"resource"`
	Metadata      *model.ResourceMetadata `json:"metadata"`
}

type kvStore struct {
	store kv.Store
	log   zerolog.Logger
}

// New returns a Store backed by the given kv store.
func New(store kv.Store, log zerolog.Logger) Store {
	return &kvStore{store: store, log: log}
}

func (s *kvStore) PutResource(ctx context.Context, res *model.Resource) error {
	if res == nil || res.ID == "" {
		return fmt.Errorf("content store: resource without id: %w", model.ErrValidation)
	}
	env := envelope{
		SchemaVersion: model.SchemaVersion,
		Resource:      res,
		Metadata:      model.BuildMetadata(res),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode resource %s: %w", res.ID, err)
	}
	return s.store.Put(ctx, partition, keyPrefix+res.ID, raw)
}

// GetResource returns the stored resource for id. A record that does not
// decode into the current schema reads as absent.
func (s *kvStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	raw, err := s.store.Get(ctx, partition, keyPrefix+id)
	if err != nil {
		return nil, err
	}
	env, ok := decode(raw)
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", id, model.ErrNotFound)
	}
	return env.Resource, nil
}

// ListMetadata returns every sidecar, newest first. Records that fail to
// decode are skipped, not fatal: one bad row must not take down listings.
func (s *kvStore) ListMetadata(ctx context.Context) ([]model.ResourceMetadata, error) {
	rows, err := s.store.List(ctx, partition, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	out := make([]model.ResourceMetadata, 0, len(rows))
	for key, raw := range rows {
		env, ok := decode(raw)
		if !ok {
			s.log.Warn().Str("key", key).Msg("skipping undecodable content record")
			continue
		}
		out = append(out, *env.Metadata)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

func decode(raw []byte) (*envelope, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	if env.SchemaVersion != model.SchemaVersion || env.Resource == nil || env.Resource.ID == "" || env.Metadata == nil {
		return nil, false
	}
	return &env, true
}
