// Package cache implements the per-process read-mostly caches and their
// coherence with the durable store: wholesale snapshot refresh on a fixed
// interval, plus refresh-on-demand when the invalidation bus delivers a
// topic.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/metrics"
)

// Fetch loads the full collection from the durable store.
type Fetch[K comparable, V any] func(ctx context.Context) (map[K]V, error)

// Snapshot is a read-mostly cache refreshed wholesale. Refresh builds a new
// map and swaps it in atomically, so readers never block and never observe
// a partially written collection; concurrent refreshes are idempotent
// because each swaps in its own complete snapshot.
type Snapshot[K comparable, V any] struct {
	name     string
	fetch    Fetch[K, V]
	interval time.Duration
	log      zerolog.Logger
	data     atomic.Pointer[map[K]V]
}

func NewSnapshot[K comparable, V any](name string, interval time.Duration, fetch Fetch[K, V], log zerolog.Logger) *Snapshot[K, V] {
	s := &Snapshot[K, V]{
		name:     name,
		fetch:    fetch,
		interval: interval,
		log:      log,
	}
	empty := make(map[K]V)
	s.data.Store(&empty)
	return s
}

// Refresh reloads the collection from the durable store, replacing the
// prior snapshot. On a store failure the stale snapshot is kept, trading
// freshness for availability.
func (s *Snapshot[K, V]) Refresh(ctx context.Context) error {
	next, err := s.fetch(ctx)
	if err != nil {
		metrics.CacheRefreshTotal.WithLabelValues(s.name, "error").Inc()
		s.log.Error().Err(err).Str("cache", s.name).Msg("cache refresh failed, keeping stale snapshot")
		return err
	}
	if next == nil {
		next = make(map[K]V)
	}
	s.data.Store(&next)
	metrics.CacheRefreshTotal.WithLabelValues(s.name, "ok").Inc()
	return nil
}

// Start performs an initial refresh and launches the interval ticker. The
// ticker fires unconditionally; it is the staleness floor independent of
// invalidation messages. It stops when ctx is cancelled.
func (s *Snapshot[K, V]) Start(ctx context.Context) {
	_ = s.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Refresh(ctx)
			}
		}
	}()
}

// Get returns one entry from the current snapshot.
func (s *Snapshot[K, V]) Get(key K) (V, bool) {
	v, ok := (*s.data.Load())[key]
	return v, ok
}

// Contains reports whether the current snapshot holds the key.
func (s *Snapshot[K, V]) Contains(key K) bool {
	_, ok := (*s.data.Load())[key]
	return ok
}

// All returns the current snapshot. Callers must treat it as read-only;
// the next refresh replaces it rather than mutating it.
func (s *Snapshot[K, V]) All() map[K]V {
	return *s.data.Load()
}

// Len returns the size of the current snapshot.
func (s *Snapshot[K, V]) Len() int {
	return len(*s.data.Load())
}
