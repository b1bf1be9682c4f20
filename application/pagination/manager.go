package pagination

import (
	"sync"
	"time"

	"songarchive-backend/application/ports"

	"go.uber.org/zap"
)

// Manager hands out one paginator per consumer session for a single
// collection. Pagination state lives as long as the session keeps using it;
// idle sessions are pruned so abandoned backoffice tabs do not accumulate.
type Manager[T any] struct {
	source ports.PageSource[T]
	cache  *PageCache[T]
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session[T]
}

type session[T any] struct {
	paginator *Paginator[T]
	lastUsed  time.Time
}

// NewManager creates a session manager. All sessions share the collection's
// page cache, so a page fetched by one session serves the others.
func NewManager[T any](source ports.PageSource[T], cache *PageCache[T], cfg Config, logger *zap.Logger) *Manager[T] {
	return &Manager[T]{
		source:   source,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*session[T]),
	}
}

// Cache exposes the shared page cache, for runtime retuning and stats.
func (m *Manager[T]) Cache() *PageCache[T] {
	return m.cache
}

// Session returns the paginator for sessionID, creating it on first use.
func (m *Manager[T]) Session(sessionID string) *Paginator[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session[T]{paginator: NewPaginator(m.source, m.cache, m.cfg, m.logger)}
		m.sessions[sessionID] = s
	}
	s.lastUsed = time.Now()
	return s.paginator
}

// InvalidateCache drops the collection's cached pages for all sessions.
func (m *Manager[T]) InvalidateCache() {
	m.cache.InvalidateCollection()
}

// PruneIdle discards sessions unused for longer than maxIdle and returns how
// many were removed. Cached pages are unaffected; only per-session position
// state is dropped.
func (m *Manager[T]) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
