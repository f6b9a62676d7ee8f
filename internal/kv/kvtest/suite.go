package kvtest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

// Run exercises a compliance suite against a kv.Store implementation.
// makeStore must return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) kv.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique partitions so suites can share a database.
	part := "p-" + uuid.New().String()
	other := "q-" + uuid.New().String()

	// Missing key
	if _, err := s.Get(ctx, part, "absent"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get absent: err=%v, want ErrNotFound", err)
	}

	// Put / Get round trip
	if err := s.Put(ctx, part, "a", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	got, err := s.Get(ctx, part, "a")
	if err != nil || !bytes.Equal(got, []byte(`{"v":1}`)) {
		t.Fatalf("Get a: got=%s err=%v", got, err)
	}

	// Overwrite
	if err := s.Put(ctx, part, "a", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if got, err := s.Get(ctx, part, "a"); err != nil || !bytes.Equal(got, []byte(`{"v":2}`)) {
		t.Fatalf("Get after overwrite: got=%s err=%v", got, err)
	}

	// Partition isolation
	if _, err := s.Get(ctx, other, "a"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get from other partition: err=%v, want ErrNotFound", err)
	}

	// Prefix listing; keys deliberately include SQL LIKE metacharacters.
	seed := map[string][]byte{
		"index/URL":             []byte(`{}`),
		"index/PackageName":     []byte(`{}`),
		"resources/abc":         []byte(`1`),
		"resources/a%b_c":       []byte(`2`),
		"https://e.test/p?x=1%": []byte(`3`),
	}
	for k, v := range seed {
		if err := s.Put(ctx, part, k, v); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	lst, err := s.List(ctx, part, "resources/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lst) != 2 {
		t.Fatalf("List resources/: n=%d, want 2 (%v)", len(lst), keysOf(lst))
	}
	if _, ok := lst["resources/a%b_c"]; !ok {
		t.Fatalf("List dropped key with metacharacters: %v", keysOf(lst))
	}
	lst, err = s.List(ctx, part, "index/")
	if err != nil || len(lst) != 2 {
		t.Fatalf("List index/: n=%d err=%v", len(lst), err)
	}

	// Dump returns everything, byte for byte.
	dump, err := s.Dump(ctx, part)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(dump) != len(seed)+1 { // seed plus key "a"
		t.Fatalf("Dump: n=%d, want %d (%v)", len(dump), len(seed)+1, keysOf(dump))
	}
	for k, v := range seed {
		if !bytes.Equal(dump[k], v) {
			t.Fatalf("Dump[%s]=%s, want %s", k, dump[k], v)
		}
	}

	// Delete
	if err := s.Delete(ctx, part, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, part, "a"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get deleted: err=%v, want ErrNotFound", err)
	}

	// Replace overwrites the partition wholesale.
	next := map[string][]byte{
		"x": []byte(`10`),
		"y": []byte(`20`),
	}
	if err := s.Replace(ctx, part, next); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	dump, err = s.Dump(ctx, part)
	if err != nil || len(dump) != 2 {
		t.Fatalf("Dump after Replace: n=%d err=%v (%v)", len(dump), err, keysOf(dump))
	}
	if !bytes.Equal(dump["x"], []byte(`10`)) || !bytes.Equal(dump["y"], []byte(`20`)) {
		t.Fatalf("Replace content mismatch: %v", dump)
	}

	// Replace must not bleed into other partitions.
	if err := s.Put(ctx, other, "keep", []byte(`1`)); err != nil {
		t.Fatalf("Put other/keep: %v", err)
	}
	if err := s.Replace(ctx, part, map[string][]byte{}); err != nil {
		t.Fatalf("Replace empty: %v", err)
	}
	if dump, err := s.Dump(ctx, part); err != nil || len(dump) != 0 {
		t.Fatalf("Dump after empty Replace: n=%d err=%v", len(dump), err)
	}
	if got, err := s.Get(ctx, other, "keep"); err != nil || !bytes.Equal(got, []byte(`1`)) {
		t.Fatalf("other partition disturbed by Replace: got=%s err=%v", got, err)
	}
}

func keysOf(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
