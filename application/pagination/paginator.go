// Package pagination implements cursor-based page navigation over a sorted
// document collection, with a TTL page cache in front of the source.
//
// Cursor pagination is used instead of offset pagination because offsets
// degrade with collection size and shift under concurrent writes; a cursor
// pins the page boundary to a concrete record.
package pagination

import (
	"context"
	"sync"

	"songarchive-backend/application/ports"

	"go.uber.org/zap"
)

// State is the queryable pagination state of one consumer session. It is
// mutated only by the navigation, sort-change and page-size-change
// operations.
type State struct {
	PageIndex  int    `json:"pageIndex"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	SortField  string `json:"sortField"`
	Descending bool   `json:"descending"`
}

// TotalPages derives the page count; zero while the collection is empty.
func (s State) TotalPages() int {
	if s.Total <= 0 || s.PageSize <= 0 {
		return 0
	}
	pages := s.Total / s.PageSize
	if s.Total%s.PageSize > 0 {
		pages++
	}
	return pages
}

// Config sets the initial sort and page size of a paginator.
type Config struct {
	SortField  string
	Descending bool
	PageSize   int
}

// Paginator fetches one page at a time from a sorted collection, tracking
// the first and last record cursors of the current page so adjacent pages
// can be requested without offset counting.
//
// All methods are safe for concurrent use; a mutex serializes navigation so
// cursors and the page index never tear.
type Paginator[T any] struct {
	source ports.PageSource[T]
	cache  *PageCache[T]
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	items   []T
	first   ports.Cursor
	last    ports.Cursor
	subs    map[int]func(State)
	nextSub int
}

// NewPaginator creates a paginator over source with cache in front. A zero
// page size defaults to 10.
func NewPaginator[T any](source ports.PageSource[T], cache *PageCache[T], cfg Config, logger *zap.Logger) *Paginator[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return &Paginator[T]{
		source: source,
		cache:  cache,
		logger: logger,
		state: State{
			PageSize:   cfg.PageSize,
			SortField:  cfg.SortField,
			Descending: cfg.Descending,
		},
		subs: make(map[int]func(State)),
	}
}

// Snapshot returns the current pagination state.
func (p *Paginator[T]) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Items returns a copy of the current page's records.
func (p *Paginator[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}

// Subscribe registers fn to run after every successful state change and
// returns the corresponding unsubscribe function.
func (p *Paginator[T]) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Paginator[T]) partition() Partition {
	return Partition{
		SortField:  p.state.SortField,
		Descending: p.state.Descending,
		PageSize:   p.state.PageSize,
	}
}

// LoadInitial resets to page zero and loads it, consulting the cache unless
// force is set. An empty collection is a valid terminal state, not an error.
func (p *Paginator[T]) LoadInitial(ctx context.Context, force bool) error {
	p.mu.Lock()
	err := p.loadPageZero(ctx, force)
	subs, state := p.subscribers(), p.state
	p.mu.Unlock()

	if err == nil {
		notify(subs, state)
	}
	return err
}

// loadPageZero fetches page zero. Callers hold the lock. On fetch failure
// prior state is left untouched.
func (p *Paginator[T]) loadPageZero(ctx context.Context, force bool) error {
	part := p.partition()

	if !force {
		if cached, ok := p.cache.GetPage(part, 0); ok {
			p.applyPage(0, cached)
			return nil
		}
	}

	page, err := p.source.Page(ctx, ports.PageRequest{
		SortField:  p.state.SortField,
		Descending: p.state.Descending,
		Limit:      p.state.PageSize,
	})
	if err != nil {
		return err
	}

	total, err := p.source.Count(ctx)
	if err != nil {
		return err
	}

	cached := CachedPage[T]{Items: page.Items, First: page.First, Last: page.Last, Total: total}
	p.cache.SetPage(part, 0, cached)
	p.applyPage(0, cached)
	return nil
}

// LoadNext advances to the next page. Without a recorded last cursor, or on
// the final page already, it is a warned no-op: that combination is a UI
// timing race, not a fault.
func (p *Paginator[T]) LoadNext(ctx context.Context, force bool) error {
	p.mu.Lock()
	changed, err := p.loadNextLocked(ctx, force)
	subs, state := p.subscribers(), p.state
	p.mu.Unlock()

	if err == nil && changed {
		notify(subs, state)
	}
	return err
}

func (p *Paginator[T]) loadNextLocked(ctx context.Context, force bool) (bool, error) {
	if p.last == "" {
		p.logger.Warn("loadNext ignored: no last cursor recorded",
			zap.String("collection", p.cache.Collection()))
		return false, nil
	}
	if p.state.PageIndex >= p.state.TotalPages()-1 {
		p.logger.Warn("loadNext ignored: already on final page",
			zap.String("collection", p.cache.Collection()),
			zap.Int("pageIndex", p.state.PageIndex))
		return false, nil
	}

	target := p.state.PageIndex + 1
	part := p.partition()

	if !force {
		if cached, ok := p.cache.GetPage(part, target); ok {
			p.applyPage(target, cached)
			return true, nil
		}
	}

	page, err := p.source.Page(ctx, ports.PageRequest{
		SortField:  p.state.SortField,
		Descending: p.state.Descending,
		Limit:      p.state.PageSize,
		After:      p.last,
	})
	if err != nil {
		return false, err
	}
	if len(page.Items) == 0 {
		p.logger.Warn("loadNext returned no records, staying on current page",
			zap.String("collection", p.cache.Collection()),
			zap.Int("pageIndex", p.state.PageIndex))
		return false, nil
	}

	cached := CachedPage[T]{Items: page.Items, First: page.First, Last: page.Last, Total: p.state.Total}
	p.cache.SetPage(part, target, cached)
	p.applyPage(target, cached)
	return true, nil
}

// LoadPrev steps back one page. On page zero, or without a recorded first
// cursor, it is a silent no-op.
func (p *Paginator[T]) LoadPrev(ctx context.Context, force bool) error {
	p.mu.Lock()
	changed, err := p.loadPrevLocked(ctx, force)
	subs, state := p.subscribers(), p.state
	p.mu.Unlock()

	if err == nil && changed {
		notify(subs, state)
	}
	return err
}

func (p *Paginator[T]) loadPrevLocked(ctx context.Context, force bool) (bool, error) {
	if p.state.PageIndex == 0 {
		return false, nil
	}
	if p.first == "" {
		p.logger.Warn("loadPrev ignored: no first cursor recorded",
			zap.String("collection", p.cache.Collection()))
		return false, nil
	}

	target := p.state.PageIndex - 1
	part := p.partition()

	if !force {
		if cached, ok := p.cache.GetPage(part, target); ok {
			p.applyPage(target, cached)
			return true, nil
		}
	}

	// "Last N before the cursor": the source returns the page-size records
	// ending just before first, in sort order.
	page, err := p.source.Page(ctx, ports.PageRequest{
		SortField:  p.state.SortField,
		Descending: p.state.Descending,
		Limit:      p.state.PageSize,
		Before:     p.first,
	})
	if err != nil {
		return false, err
	}

	cached := CachedPage[T]{Items: page.Items, First: page.First, Last: page.Last, Total: p.state.Total}
	p.cache.SetPage(part, target, cached)
	p.applyPage(target, cached)
	return true, nil
}

// SortChanged switches the sort field, or toggles direction when the field
// is unchanged. Recorded cursors are only valid for the sort they were
// issued under, so the old partition is invalidated and page zero reloads.
func (p *Paginator[T]) SortChanged(ctx context.Context, field string) error {
	p.mu.Lock()

	p.cache.InvalidatePartition(p.partition())

	if field == p.state.SortField {
		p.state.Descending = !p.state.Descending
	} else {
		p.state.SortField = field
		p.state.Descending = false
	}
	p.resetCursors()

	err := p.loadPageZero(ctx, false)
	subs, state := p.subscribers(), p.state
	p.mu.Unlock()

	if err == nil {
		notify(subs, state)
	}
	return err
}

// PageSizeChanged invalidates the current partition (old page size), resets
// to page zero with the new size and reloads.
func (p *Paginator[T]) PageSizeChanged(ctx context.Context, size int) error {
	if size <= 0 {
		return nil
	}

	p.mu.Lock()

	p.cache.InvalidatePartition(p.partition())
	p.state.PageSize = size
	p.resetCursors()

	err := p.loadPageZero(ctx, false)
	subs, state := p.subscribers(), p.state
	p.mu.Unlock()

	if err == nil {
		notify(subs, state)
	}
	return err
}

// Refresh drops every cached page of the collection, clears cursors and
// reloads page zero from the source.
func (p *Paginator[T]) Refresh(ctx context.Context) error {
	p.mu.Lock()

	p.cache.InvalidateCollection()
	p.resetCursors()

	err := p.loadPageZero(ctx, true)
	subs, state := p.subscribers(), p.state
	p.mu.Unlock()

	if err == nil {
		notify(subs, state)
	}
	return err
}

// InvalidateCache drops the collection's cached pages without reloading.
// Mutation signals (create/update/delete of underlying records) land here.
func (p *Paginator[T]) InvalidateCache() {
	p.cache.InvalidateCollection()
}

func (p *Paginator[T]) resetCursors() {
	p.state.PageIndex = 0
	p.first = ""
	p.last = ""
}

// applyPage installs a fetched or cached page. Cursors of an empty page are
// cleared so stale positions cannot leak into later requests.
func (p *Paginator[T]) applyPage(index int, page CachedPage[T]) {
	p.state.PageIndex = index
	p.state.Total = page.Total
	p.items = page.Items
	p.first = page.First
	p.last = page.Last
}

func (p *Paginator[T]) subscribers() []func(State) {
	out := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(State), state State) {
	for _, fn := range subs {
		fn(state)
	}
}
