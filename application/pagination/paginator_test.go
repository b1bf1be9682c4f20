package pagination

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"songarchive-backend/application/ports"
	"songarchive-backend/pkg/cache"
	"songarchive-backend/pkg/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource pages over an in-memory sorted list. Cursors are the record
// values themselves.
type fakeSource struct {
	mu         sync.Mutex
	items      []string
	pageCalls  int
	countCalls int
	pageErr    error
}

func (s *fakeSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageErr = err
}

func (s *fakeSource) calls() (pages, counts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCalls, s.countCalls
}

func (s *fakeSource) ordered(descending bool) []string {
	out := append([]string(nil), s.items...)
	sort.Strings(out)
	if descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func (s *fakeSource) Page(_ context.Context, req ports.PageRequest) (ports.Page[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pageCalls++
	if s.pageErr != nil {
		return ports.Page[string]{}, s.pageErr
	}

	ordered := s.ordered(req.Descending)
	var window []string
	switch {
	case req.After != "":
		idx := indexOfString(ordered, string(req.After))
		if idx < 0 {
			return ports.Page[string]{}, errors.New("stale cursor")
		}
		window = clip(ordered[idx+1:], req.Limit)
	case req.Before != "":
		idx := indexOfString(ordered, string(req.Before))
		if idx < 0 {
			return ports.Page[string]{}, errors.New("stale cursor")
		}
		start := idx - req.Limit
		if start < 0 {
			start = 0
		}
		window = ordered[start:idx]
	default:
		window = clip(ordered, req.Limit)
	}

	page := ports.Page[string]{Items: window}
	if len(window) > 0 {
		page.First = ports.Cursor(window[0])
		page.Last = ports.Cursor(window[len(window)-1])
	}
	return page, nil
}

func (s *fakeSource) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	return len(s.items), nil
}

func indexOfString(items []string, v string) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return -1
}

func clip(items []string, limit int) []string {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func newTestMetrics() *observability.CacheMetrics {
	return observability.NewCacheMetrics(prometheus.NewRegistry(), "test", nil, zap.NewNop())
}

func newTestPaginator(items []string, pageSize int) (*Paginator[string], *fakeSource, *cache.Store) {
	source := &fakeSource{items: items}
	store := cache.NewStore()
	pageCache := NewPageCache[string](store, "songs", 0, newTestMetrics())
	p := NewPaginator[string](source, pageCache, Config{SortField: "title", PageSize: pageSize}, zap.NewNop())
	return p, source, store
}

func TestPaginator_LoadInitial(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c", "d", "e"}, 2)

	require.NoError(t, p.LoadInitial(context.Background(), false))

	state := p.Snapshot()
	assert.Equal(t, 0, state.PageIndex)
	assert.Equal(t, 5, state.Total)
	assert.Equal(t, 3, state.TotalPages())
	assert.Equal(t, []string{"a", "b"}, p.Items())
}

func TestPaginator_LoadInitialEmptyCollection(t *testing.T) {
	p, _, _ := newTestPaginator(nil, 2)

	require.NoError(t, p.LoadInitial(context.Background(), false))

	state := p.Snapshot()
	assert.Zero(t, state.Total)
	assert.Zero(t, state.TotalPages())
	assert.Empty(t, p.Items())

	// With no cursor recorded, next navigation stays put without error.
	require.NoError(t, p.LoadNext(context.Background(), false))
	assert.Zero(t, p.Snapshot().PageIndex)
}

func TestPaginator_NextAndPrevBookkeeping(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c", "d", "e"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadNext(ctx, false))

	assert.Equal(t, 1, p.Snapshot().PageIndex)
	assert.Equal(t, []string{"c", "d"}, p.Items())

	require.NoError(t, p.LoadNext(ctx, false))
	assert.Equal(t, 2, p.Snapshot().PageIndex)
	assert.Equal(t, []string{"e"}, p.Items())

	require.NoError(t, p.LoadPrev(ctx, false))
	assert.Equal(t, 1, p.Snapshot().PageIndex)
	assert.Equal(t, []string{"c", "d"}, p.Items())
}

func TestPaginator_LoadNextOnFinalPageIsNoOp(t *testing.T) {
	p, source, _ := newTestPaginator([]string{"a", "b", "c"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadNext(ctx, false))
	pagesBefore, _ := source.calls()

	require.NoError(t, p.LoadNext(ctx, false))

	pagesAfter, _ := source.calls()
	assert.Equal(t, pagesBefore, pagesAfter, "final-page next must not hit the source")
	assert.Equal(t, 1, p.Snapshot().PageIndex)
	assert.Equal(t, []string{"c"}, p.Items())
}

func TestPaginator_LoadPrevOnFirstPageIsNoOp(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadPrev(ctx, false))

	assert.Zero(t, p.Snapshot().PageIndex)
	assert.Equal(t, []string{"a", "b"}, p.Items())
}

func TestPaginator_FailedFetchLeavesStateIntact(t *testing.T) {
	p, source, _ := newTestPaginator([]string{"a", "b", "c", "d"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	before := p.Snapshot()

	source.setErr(errors.New("query throttled"))
	err := p.LoadNext(ctx, true)

	require.Error(t, err)
	assert.Equal(t, before, p.Snapshot())
	assert.Equal(t, []string{"a", "b"}, p.Items())

	// Recovery: the source comes back and navigation proceeds.
	source.setErr(nil)
	require.NoError(t, p.LoadNext(ctx, true))
	assert.Equal(t, 1, p.Snapshot().PageIndex)
}

func TestPaginator_CacheHitAvoidsSource(t *testing.T) {
	p, source, _ := newTestPaginator([]string{"a", "b", "c", "d"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadNext(ctx, false))
	pagesBefore, _ := source.calls()

	// Page zero was cached by LoadInitial; stepping back hits the cache.
	require.NoError(t, p.LoadPrev(ctx, false))

	pagesAfter, _ := source.calls()
	assert.Equal(t, pagesBefore, pagesAfter)
	assert.Equal(t, []string{"a", "b"}, p.Items())
}

func TestPaginator_SortChangeTogglesAndReloads(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c", "d"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadNext(ctx, false))

	// Same field toggles direction and resets to page zero.
	require.NoError(t, p.SortChanged(ctx, "title"))
	state := p.Snapshot()
	assert.True(t, state.Descending)
	assert.Zero(t, state.PageIndex)
	assert.Equal(t, []string{"d", "c"}, p.Items())

	// Different field resets to ascending.
	require.NoError(t, p.SortChanged(ctx, "createdAt"))
	state = p.Snapshot()
	assert.Equal(t, "createdAt", state.SortField)
	assert.False(t, state.Descending)
	assert.Zero(t, state.PageIndex)
}

func TestPaginator_SortRoundTripRestoresFirstPage(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c", "d"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	first := p.Items()

	require.NoError(t, p.SortChanged(ctx, "title"))
	require.NoError(t, p.SortChanged(ctx, "title"))

	assert.Equal(t, first, p.Items())
	assert.False(t, p.Snapshot().Descending)
}

func TestPaginator_PageSizeChangeResetsToPageZero(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c", "d", "e"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadNext(ctx, false))

	require.NoError(t, p.PageSizeChanged(ctx, 3))

	state := p.Snapshot()
	assert.Zero(t, state.PageIndex)
	assert.Equal(t, 3, state.PageSize)
	assert.Equal(t, []string{"a", "b", "c"}, p.Items())
	assert.Equal(t, 2, state.TotalPages())
}

func TestPaginator_RefreshBypassesCache(t *testing.T) {
	p, source, _ := newTestPaginator([]string{"a", "b"}, 2)
	ctx := context.Background()

	require.NoError(t, p.LoadInitial(ctx, false))
	pagesBefore, _ := source.calls()

	require.NoError(t, p.Refresh(ctx))

	pagesAfter, _ := source.calls()
	assert.Greater(t, pagesAfter, pagesBefore, "refresh must re-query the source")
}

func TestPaginator_SubscribeNotifiedOnStateChange(t *testing.T) {
	p, _, _ := newTestPaginator([]string{"a", "b", "c", "d"}, 2)
	ctx := context.Background()

	var notified []State
	unsubscribe := p.Subscribe(func(s State) { notified = append(notified, s) })

	require.NoError(t, p.LoadInitial(ctx, false))
	require.NoError(t, p.LoadNext(ctx, false))
	require.Len(t, notified, 2)
	assert.Equal(t, 1, notified[1].PageIndex)

	unsubscribe()
	require.NoError(t, p.LoadPrev(ctx, false))
	assert.Len(t, notified, 2)
}
