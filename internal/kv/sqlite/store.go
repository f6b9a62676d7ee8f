// Package sqlite implements kv.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode for better concurrency on read-heavy workloads.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap creates the key space table when it does not exist yet.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS kv_records (
            partition_id TEXT NOT NULL,
            record_key   TEXT NOT NULL,
            record_value BLOB NOT NULL,
            updated_at   TEXT NOT NULL DEFAULT (datetime('now')),
            PRIMARY KEY (partition_id, record_key)
        )
    `)
	return err
}

// New constructs a SQLite-backed kv.Store over an opened database handle.
func New(db *sql.DB) kv.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Get(ctx context.Context, partition, key string) ([]byte, error) {
	var value []byte
	row := s.db.QueryRowContext(ctx, `
        SELECT record_value FROM kv_records WHERE partition_id=? AND record_key=?
    `, partition, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s/%s: %w", partition, key, model.ErrNotFound)
		}
		return nil, err
	}
	return value, nil
}

func (s *sqliteStore) Put(ctx context.Context, partition, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv_records (partition_id, record_key, record_value)
        VALUES (?,?,?)
        ON CONFLICT (partition_id, record_key)
        DO UPDATE SET record_value=excluded.record_value, updated_at=datetime('now')
    `, partition, key, value)
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, partition, key string) error {
	_, err := s.db.ExecContext(ctx, `
        DELETE FROM kv_records WHERE partition_id=? AND record_key=?
    `, partition, key)
	return err
}

func (s *sqliteStore) List(ctx context.Context, partition, prefix string) (map[string][]byte, error) {
	// substr comparison instead of LIKE: keys may contain % and _ (URLs).
	rows, err := s.db.QueryContext(ctx, `
        SELECT record_key, record_value FROM kv_records
        WHERE partition_id=? AND substr(record_key, 1, ?) = ?
    `, partition, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]byte)
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *sqliteStore) Dump(ctx context.Context, partition string) (map[string][]byte, error) {
	return s.List(ctx, partition, "")
}

func (s *sqliteStore) Replace(ctx context.Context, partition string, data map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_records WHERE partition_id=?`, partition); err != nil {
		return err
	}
	for k, v := range data {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO kv_records (partition_id, record_key, record_value) VALUES (?,?,?)
        `, partition, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
