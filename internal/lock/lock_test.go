// README: Lock tests: exclusivity, FIFO order, cancellation and redis chain.
package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "order:1")
			require.NoError(t, err)
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			counter++
			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Held())
}

func TestLocalFIFO(t *testing.T) {
	l := NewLocal()
	first, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			unlock()
		}(i)
		// let goroutine i enqueue before i+1
		time.Sleep(10 * time.Millisecond)
	}
	first()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLocalIndependentKeys(t *testing.T) {
	l := NewLocal()
	a, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer a()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	b, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	b()
}

func TestLocalCancelledWaiterKeepsOrder(t *testing.T) {
	l := NewLocal()
	hold, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		unlock, err := l.Lock(context.Background(), "k")
		if err == nil {
			unlock()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("acquired while first holder still active")
	case <-time.After(30 * time.Millisecond):
	}
	hold()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestUnlockIdempotent(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Equal(t, 0, l.Held())
}

func TestRedisChain(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	chain := Chain{NewLocal(), NewRedis(client)}

	unlock, err := chain.Lock(context.Background(), "order:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:order:1"))

	other := NewRedis(client)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = other.Lock(ctx, "order:1")
	require.Error(t, err)

	unlock()
	assert.False(t, mr.Exists("lock:order:1"))
}
