package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper scans for
// expired entries.
const DefaultSweepInterval = 5 * time.Minute

// Store is an in-memory key/value store with per-entry TTL. It is the single
// shared mutable resource of the caching layer: all mutations are atomic with
// respect to a single key, and readers never observe a half-written entry.
//
// Expired entries are evicted lazily by Get and in bulk by the sweeper. Both
// pagination and aggregation tiers run on top of it; the aggregation tier
// additionally reads expired entries through GetStale to serve degraded
// responses.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	payload  interface{}
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// NewStore creates an empty store. The caller owns the lifecycle; nothing is
// persisted across restarts.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Get returns the payload for key if the entry is still within its TTL.
// An expired entry is deleted and reported as a miss. A missing key is never
// an error.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if e.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := s.entries[key]; ok && cur.expired(time.Now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return e.payload, true
}

// GetStale returns the payload and storage time for key regardless of TTL
// expiry, without evicting. Callers that can serve degraded data (stale
// fallback) use this to reach the last good entry.
func (s *Store) GetStale(key string) (interface{}, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	return e.payload, e.storedAt, true
}

// Set stores or overwrites the entry for key with a fresh timestamp.
func (s *Store) Set(key string, payload interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		payload:  payload,
		storedAt: time.Now(),
		ttl:      ttl,
	}
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// DeleteFunc removes every entry whose key satisfies pred and returns how
// many were removed. The predicate runs against a snapshot of the key set so
// it never observes a mid-write entry.
func (s *Store) DeleteFunc(pred func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if pred(key) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Keys returns a snapshot of all stored keys, including expired ones that
// have not been swept yet.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Sweep performs one eviction pass and returns the number of entries removed.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic eviction until ctx is cancelled. It bounds
// memory growth from abandoned partitions.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
