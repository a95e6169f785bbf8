// README: Persistence adapter: opaque key/value store with TTL and prefix scan.
package kv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"dishbee/internal/infra"
)

// ErrNotFound indicates the key is absent or expired.
var ErrNotFound = errors.New("kv: not found")

// Store is the persistence substrate for order records.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Scan returns every live entry whose key starts with prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
	Close() error
}

// Purger is implemented by backends that keep expired rows until told to drop them.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Purge drops expired entries when s needs it and reports how many went.
func Purge(ctx context.Context, s Store) (int64, error) {
	p, ok := s.(Purger)
	if !ok {
		return 0, nil
	}
	return p.PurgeExpired(ctx)
}

// Open selects a backend from the URL scheme: redis, rediss, postgres, postgresql or memory.
func Open(ctx context.Context, rawURL, password string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("kv: parse url: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		client, err := infra.NewRedis(ctx, rawURL, password)
		if err != nil {
			return nil, fmt.Errorf("kv: %w", err)
		}
		return NewRedisStore(client), nil
	case "postgres", "postgresql":
		pool, err := infra.NewDB(ctx, rawURL, password)
		if err != nil {
			return nil, fmt.Errorf("kv: %w", err)
		}
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("kv: %w", err)
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("kv: unsupported scheme %q", u.Scheme)
	}
}

const retryTries = 3

// retry runs op up to three times with exponential backoff; ErrNotFound is never retried.
func retry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if errors.Is(err, ErrNotFound) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(retryTries))
}
