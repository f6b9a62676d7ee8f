// Package memory provides an in-process kv.Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

type memStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// New returns an empty in-memory store.
func New() kv.Store {
	return &memStore{data: make(map[string]map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, partition, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[partition]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", partition, key, model.ErrNotFound)
	}
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", partition, key, model.ErrNotFound)
	}
	return clone(v), nil
}

func (s *memStore) Put(_ context.Context, partition, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[partition]
	if !ok {
		p = make(map[string][]byte)
		s.data[partition] = p
	}
	p[key] = clone(value)
	return nil
}

func (s *memStore) Delete(_ context.Context, partition, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data[partition]; ok {
		delete(p, key)
	}
	return nil
}

func (s *memStore) List(_ context.Context, partition, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range s.data[partition] {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out[k] = clone(v)
		}
	}
	return out, nil
}

func (s *memStore) Dump(ctx context.Context, partition string) (map[string][]byte, error) {
	return s.List(ctx, partition, "")
}

func (s *memStore) Replace(_ context.Context, partition string, data map[string][]byte) error {
	next := make(map[string][]byte, len(data))
	for k, v := range data {
		next[k] = clone(v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[partition] = next
	return nil
}

func (s *memStore) Close() error { return nil }

// HealthPing implements health.HealthPinger.
func (s *memStore) HealthPing(context.Context) error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
