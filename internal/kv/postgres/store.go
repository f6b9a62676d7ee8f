// Package postgres implements kv.Store on PostgreSQL via the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
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
            record_value BYTEA NOT NULL,
            updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (partition_id, record_key)
        )
    `)
	return err
}

// NewWithDB constructs a Postgres-backed kv.Store over an opened handle.
func NewWithDB(db *sql.DB) kv.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Get(ctx context.Context, partition, key string) ([]byte, error) {
	var value []byte
	row := s.db.QueryRowContext(ctx, `
        SELECT record_value FROM kv_records WHERE partition_id=$1 AND record_key=$2
    `, partition, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s/%s: %w", partition, key, model.ErrNotFound)
		}
		return nil, err
	}
	return value, nil
}

func (s *pgStore) Put(ctx context.Context, partition, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv_records (partition_id, record_key, record_value)
        VALUES ($1,$2,$3)
        ON CONFLICT (partition_id, record_key)
        DO UPDATE SET record_value=EXCLUDED.record_value, updated_at=now()
    `, partition, key, value)
	return err
}

func (s *pgStore) Delete(ctx context.Context, partition, key string) error {
	_, err := s.db.ExecContext(ctx, `
        DELETE FROM kv_records WHERE partition_id=$1 AND record_key=$2
    `, partition, key)
	return err
}

func (s *pgStore) List(ctx context.Context, partition, prefix string) (map[string][]byte, error) {
	// substr comparison instead of LIKE: keys may contain % and _ (URLs).
	rows, err := s.db.QueryContext(ctx, `
        SELECT record_key, record_value FROM kv_records
        WHERE partition_id=$1 AND substr(record_key, 1, $2) = $3
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

func (s *pgStore) Dump(ctx context.Context, partition string) (map[string][]byte, error) {
	return s.List(ctx, partition, "")
}

func (s *pgStore) Replace(ctx context.Context, partition string, data map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_records WHERE partition_id=$1`, partition); err != nil {
		return err
	}
	for k, v := range data {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO kv_records (partition_id, record_key, record_value) VALUES ($1,$2,$3)
        `, partition, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *pgStore) Close() error { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
