package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/kv/kvtest"
)

func makePGStore(t *testing.T) kv.Store {
	t.Helper()
	dsn := os.Getenv("DEVSHELF_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DEVSHELF_TEST_POSTGRES_DSN not set; skipping postgres kv integration test")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Bootstrap(context.Background(), db); err != nil {
		t.Fatalf("postgres bootstrap: %v", err)
	}
	return NewWithDB(db)
}

func TestPostgresStore_Compliance(t *testing.T) {
	kvtest.Run(t, makePGStore)
}
