package memory

import (
	"context"
	"testing"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/kv/kvtest"
)

func TestMemoryStore_Compliance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store { return New() })
}

func TestMemoryStore_ValueIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	v := []byte(`{"n":1}`)
	if err := s.Put(ctx, "p", "k", v); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v[2] = 'x' // caller mutates its buffer after the write

	got, err := s.Get(ctx, "p", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"n":1}` {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}

	got[0] = 'x' // caller mutates the read buffer
	again, err := s.Get(ctx, "p", "k")
	if err != nil || string(again) != `{"n":1}` {
		t.Fatalf("read buffer aliased store: %s err=%v", again, err)
	}
}
