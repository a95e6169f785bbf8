// README: Per-key mutual exclusion: in-process FIFO locks plus an optional redis lock for replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var ErrNotObtained = errors.New("lock: not obtained")

// Locker grants exclusive access to key until the returned unlock func is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type waiter struct {
	done chan struct{}
}

// Local serializes holders of the same key in arrival order.
type Local struct {
	mu    sync.Mutex
	tails map[string]*waiter
}

func NewLocal() *Local {
	return &Local{tails: map[string]*waiter{}}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	me := &waiter{done: make(chan struct{})}

	l.mu.Lock()
	prev := l.tails[key]
	l.tails[key] = me
	l.mu.Unlock()

	if prev != nil {
		select {
		case <-prev.done:
		case <-ctx.Done():
			// keep our slot in the chain so successors still wait for prev
			go func() {
				<-prev.done
				l.release(key, me)
			}()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(key, me) }) }, nil
}

func (l *Local) release(key string, me *waiter) {
	l.mu.Lock()
	if l.tails[key] == me {
		delete(l.tails, key)
	}
	l.mu.Unlock()
	close(me.done)
}

// Held reports how many keys currently have a holder or waiters.
func (l *Local) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tails)
}

// Redis is a cross-process lock backed by bsm/redislock.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: redislock.New(client), ttl: 30 * time.Second, prefix: "lock:"}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 600),
	}
	lk, err := r.client.Obtain(ctx, r.prefix+key, r.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("lock: obtain %s: %w", key, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lk.Release(ctx)
		})
	}, nil
}

// Chain acquires every locker in order and releases in reverse.
type Chain []Locker

func (c Chain) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		u, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return releaseAll, nil
}
