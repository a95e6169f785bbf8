// README: Order store: in-memory index of orders, write-through to the KV persistence adapter.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dishbee/internal/kv"
	"dishbee/internal/types"
)

var (
	ErrNotFound = errors.New("order not found")
	ErrExists   = errors.New("order already exists")
)

const keyPrefix = "order:"

func Key(id string) string {
	return keyPrefix + id
}

type Store struct {
	kv  kv.Store
	ttl time.Duration
	loc *time.Location
	log *zap.Logger

	mu     sync.RWMutex
	orders map[string]*Order
}

func NewStore(backend kv.Store, ttl time.Duration, loc *time.Location, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Store{kv: backend, ttl: ttl, loc: loc, log: log, orders: map[string]*Order{}}
}

// Load rebuilds the index from every persisted record. Undecodable records are skipped.
func (s *Store) Load(ctx context.Context) (int, error) {
	raw, err := s.kv.Scan(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("load orders: %w", err)
	}
	loaded := make(map[string]*Order, len(raw))
	for key, blob := range raw {
		o, err := Unmarshal(blob, s.loc)
		if err != nil {
			s.log.Warn("skip unreadable order record", zap.String("key", key), zap.Error(err))
			continue
		}
		loaded[o.ID] = o
	}
	s.mu.Lock()
	s.orders = loaded
	s.mu.Unlock()
	return len(loaded), nil
}

// Get returns a copy of the order.
func (s *Store) Get(id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orders[id]
	return ok
}

// Create saves a new order and returns ErrExists when the id is already indexed.
// Callers hold the order lock.
func (s *Store) Create(ctx context.Context, o *Order) error {
	if s.Exists(o.ID) {
		return fmt.Errorf("order %s: %w", o.ID, ErrExists)
	}
	return s.Save(ctx, o)
}

// Save persists o and then publishes it to the index. Callers hold the order lock.
func (s *Store) Save(ctx context.Context, o *Order) error {
	blob, err := Marshal(o)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, Key(o.ID), blob, s.ttl); err != nil {
		return fmt.Errorf("persist order %s: %w", o.ID, err)
	}
	s.mu.Lock()
	s.orders[o.ID] = o.Clone()
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()
	return nil
}

// List returns copies of all indexed orders, oldest first.
func (s *Store) List() []*Order {
	s.mu.RLock()
	out := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	s.mu.RUnlock()
	SortByCreated(out)
	return out
}

// OpenCount counts orders that are not delivered or removed.
func (s *Store) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.orders {
		if !o.Status.Terminal() {
			n++
		}
	}
	return n
}

// Sweep deletes persisted orders created before the start of today minus days,
// with "today" taken in the store's timezone. It works from the persisted records
// so it can run without a prior Load. Backends that keep expired rows are purged afterwards.
func (s *Store) Sweep(ctx context.Context, now time.Time, days int) (int, error) {
	cutoff := types.StartOfDay(now.In(s.loc)).AddDate(0, 0, -days)
	raw, err := s.kv.Scan(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("sweep scan: %w", err)
	}
	removed := 0
	for key, blob := range raw {
		o, err := Unmarshal(blob, s.loc)
		if err != nil {
			s.log.Warn("sweep skipping unreadable record", zap.String("key", key), zap.Error(err))
			continue
		}
		if !o.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("sweep delete %s: %w", key, err)
		}
		s.mu.Lock()
		delete(s.orders, strings.TrimPrefix(key, keyPrefix))
		s.mu.Unlock()
		removed++
	}
	purged, err := kv.Purge(ctx, s.kv)
	if err != nil {
		return removed, fmt.Errorf("sweep purge: %w", err)
	}
	if purged > 0 {
		s.log.Info("purged expired records", zap.Int64("purged", purged))
	}
	return removed, nil
}
