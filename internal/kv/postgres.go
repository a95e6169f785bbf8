// README: Postgres-backed KV store: one kv_entries table with an expires_at column.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			expires_at TIMESTAMPTZ
		)`)
	return err
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	_, err := retry(ctx, func() (struct{}, error) {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
			key, value, expires)
		return struct{}{}, err
	})
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	return retry(ctx, func() ([]byte, error) {
		var value []byte
		err := s.pool.QueryRow(ctx, `
			SELECT value FROM kv_entries
			WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`, key).Scan(&value)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return value, err
	})
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := retry(ctx, func() (struct{}, error) {
		_, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
		return struct{}{}, err
	})
	return err
}

func (s *PostgresStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	return retry(ctx, func() (map[string][]byte, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT key, value FROM kv_entries
			WHERE starts_with(key, $1) AND (expires_at IS NULL OR expires_at > now())`, prefix)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := map[string][]byte{}
		for rows.Next() {
			var key string
			var value []byte
			if err := rows.Scan(&key, &value); err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, rows.Err()
	})
}

// PurgeExpired removes rows whose TTL has passed; redis does this on its own.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	return retry(ctx, func() (int64, error) {
		tag, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= now()`)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	})
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
