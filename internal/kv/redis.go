// README: Redis-backed KV store (SET EX, GET, DEL, SCAN + MGET).
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying connection for the distributed lock.
func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	return retry(ctx, func() ([]byte, error) {
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return b, err
	})
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Del(ctx, key).Err()
	})
	return err
}

func (s *RedisStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	return retry(ctx, func() (map[string][]byte, error) {
		var keys []string
		iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}

		out := make(map[string][]byte, len(keys))
		for start := 0; start < len(keys); start += 200 {
			end := min(start+200, len(keys))
			batch := keys[start:end]
			vals, err := s.client.MGet(ctx, batch...).Result()
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				// expired between SCAN and MGET
				if v == nil {
					continue
				}
				if str, ok := v.(string); ok {
					out[batch[i]] = []byte(str)
				}
			}
		}
		return out, nil
	})
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
