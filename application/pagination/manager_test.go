package pagination

import (
	"context"
	"testing"
	"time"

	"songarchive-backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(items []string) (*Manager[string], *fakeSource, *cache.Store) {
	source := &fakeSource{items: items}
	store := cache.NewStore()
	pageCache := NewPageCache[string](store, "songs", 0, newTestMetrics())
	m := NewManager[string](source, pageCache, Config{SortField: "title", PageSize: 2}, zap.NewNop())
	return m, source, store
}

func TestManager_SessionIsolation(t *testing.T) {
	m, _, _ := newTestManager([]string{"a", "b", "c", "d"})
	ctx := context.Background()

	tabA := m.Session("tab-a")
	tabB := m.Session("tab-b")
	require.NotSame(t, tabA, tabB)

	require.NoError(t, tabA.LoadInitial(ctx, false))
	require.NoError(t, tabB.LoadInitial(ctx, false))
	require.NoError(t, tabA.LoadNext(ctx, false))

	// One tab navigating must not move the other.
	assert.Equal(t, 1, tabA.Snapshot().PageIndex)
	assert.Equal(t, 0, tabB.Snapshot().PageIndex)
}

func TestManager_SessionReuse(t *testing.T) {
	m, _, _ := newTestManager([]string{"a", "b"})

	assert.Same(t, m.Session("tab-a"), m.Session("tab-a"))
}

func TestManager_SharedCacheAcrossSessions(t *testing.T) {
	m, source, _ := newTestManager([]string{"a", "b", "c", "d"})
	ctx := context.Background()

	require.NoError(t, m.Session("tab-a").LoadInitial(ctx, false))
	pagesBefore, countsBefore := source.calls()

	// The second session's page zero comes from the shared cache.
	require.NoError(t, m.Session("tab-b").LoadInitial(ctx, false))

	pagesAfter, countsAfter := source.calls()
	assert.Equal(t, pagesBefore, pagesAfter)
	assert.Equal(t, countsBefore, countsAfter)
}

func TestManager_InvalidateCache(t *testing.T) {
	m, source, store := newTestManager([]string{"a", "b", "c", "d"})
	ctx := context.Background()

	require.NoError(t, m.Session("tab-a").LoadInitial(ctx, false))
	require.NotZero(t, store.Len())

	m.InvalidateCache()

	assert.Zero(t, store.Len())

	// Next load goes back to the source.
	pagesBefore, _ := source.calls()
	require.NoError(t, m.Session("tab-b").LoadInitial(ctx, false))
	pagesAfter, _ := source.calls()
	assert.Greater(t, pagesAfter, pagesBefore)
}

func TestManager_PruneIdle(t *testing.T) {
	m, _, _ := newTestManager([]string{"a", "b"})

	m.Session("stale-tab")
	time.Sleep(5 * time.Millisecond)

	removed := m.PruneIdle(time.Nanosecond)
	assert.Equal(t, 1, removed)

	// Pruning only drops position state; the session id simply starts fresh.
	fresh := m.Session("stale-tab")
	assert.Zero(t, fresh.Snapshot().PageIndex)

	removed = m.PruneIdle(time.Hour)
	assert.Zero(t, removed)
}
