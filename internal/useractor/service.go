// Package useractor is the per-user profile collaborator. Profiles live one
// key per user in the users partition and are auto-provisioned on first
// mutation; a single mutex serializes all writers.
package useractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

const partition = "users"

// Service is what the facade sees of user profiles.
type Service interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	RecordView(ctx context.Context, userID, resourceID string) error
	SetBookmark(ctx context.Context, userID, resourceID string, bookmarked bool) error
	Backup(ctx context.Context, userID string) (json.RawMessage, error)
	Restore(ctx context.Context, userID string, data json.RawMessage) error
}

type service struct {
	mu    sync.Mutex
	store kv.Store
	log   zerolog.Logger
}

func New(store kv.Store, log zerolog.Logger) Service {
	return &service{store: store, log: log}
}

func (s *service) Get(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId required: %w", model.ErrValidation)
	}
	return s.load(ctx, userID)
}

// List returns every profile ordered by user id. Undecodable records are
// skipped.
func (s *service) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.store.Dump(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]model.User, 0, len(rows))
	for key, raw := range rows {
		u, ok := decode(raw)
		if !ok {
			s.log.Warn().Str("key", key).Msg("skipping undecodable user record")
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// RecordView bumps the user's per-resource view counter, provisioning the
// profile if this is the user's first recorded activity.
func (s *service) RecordView(ctx context.Context, userID, resourceID string) error {
	if userID == "" || resourceID == "" {
		return fmt.Errorf("userId and resourceId required: %w", model.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	u, err := s.loadOrProvision(ctx, userID)
	if err != nil {
		return err
	}
	if u.Views == nil {
		u.Views = make(map[string]int64)
	}
	u.Views[resourceID]++
	return s.persist(ctx, u)
}

// SetBookmark records or clears a bookmark on the profile. When the profile
// already reflects the wanted state nothing is persisted.
func (s *service) SetBookmark(ctx context.Context, userID, resourceID string, bookmarked bool) error {
	if userID == "" || resourceID == "" {
		return fmt.Errorf("userId and resourceId required: %w", model.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	u, err := s.loadOrProvision(ctx, userID)
	if err != nil {
		return err
	}
	idx := -1
	for i, id := range u.Bookmarks {
		if id == resourceID {
			idx = i
			break
		}
	}
	switch {
	case bookmarked && idx < 0:
		u.Bookmarks = append(u.Bookmarks, resourceID)
	case !bookmarked && idx >= 0:
		u.Bookmarks = append(u.Bookmarks[:idx], u.Bookmarks[idx+1:]...)
	default:
		return nil
	}
	return s.persist(ctx, u)
}

// Backup returns the user's raw record verbatim.
func (s *service) Backup(ctx context.Context, userID string) (json.RawMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId required: %w", model.ErrValidation)
	}
	raw, err := s.store.Get(ctx, partition, userID)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Restore overwrites one user's record. The payload must decode into the
// current schema for the same user id; anything else is rejected.
func (s *service) Restore(ctx context.Context, userID string, data json.RawMessage) error {
	if userID == "" {
		return fmt.Errorf("userId required: %w", model.ErrValidation)
	}
	u, ok := decode(data)
	if !ok || u.UserID != userID {
		return fmt.Errorf("restore payload does not describe user %s: %w", userID, model.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Put(context.WithoutCancel(ctx), partition, userID, data)
}

func (s *service) load(ctx context.Context, userID string) (*model.User, error) {
	raw, err := s.store.Get(ctx, partition, userID)
	if err != nil {
		return nil, err
	}
	u, ok := decode(raw)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	return u, nil
}

func (s *service) loadOrProvision(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.load(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	u = &model.User{
		SchemaVersion: model.SchemaVersion,
		UserID:        userID,
		ProvisionID:   uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}
	s.log.Info().Str("userId", userID).Msg("user profile provisioned")
	return u, nil
}

func (s *service) persist(ctx context.Context, u *model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", u.UserID, err)
	}
	return s.store.Put(ctx, partition, u.UserID, raw)
}

func decode(raw []byte) (*model.User, bool) {
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, false
	}
	if u.SchemaVersion != model.SchemaVersion || u.UserID == "" {
		return nil, false
	}
	return &u, true
}
