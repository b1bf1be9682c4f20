package aggregation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeArchive struct {
	mu     sync.Mutex
	events []domain.Event
	calls  int
	err    error
}

func (f *fakeArchive) ListAll(context.Context) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Event(nil), f.events...), nil
}

func (f *fakeArchive) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// The remaining repository surface is unused by the aggregation tier.
func (f *fakeArchive) Page(context.Context, ports.PageRequest) (ports.Page[domain.Event], error) {
	return ports.Page[domain.Event]{}, errors.New("not implemented")
}
func (f *fakeArchive) Count(context.Context) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeArchive) Get(context.Context, string) (*domain.Event, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeArchive) Put(context.Context, *domain.Event) error {
	return errors.New("not implemented")
}

func (f *fakeArchive) Delete(context.Context, string) error {
	return errors.New("not implemented")
}

type fakeFeed struct {
	mu     sync.Mutex
	events []domain.Event
	calls  int
	err    error
	lastQ  ports.FeedQuery
}

func (f *fakeFeed) FetchEvents(_ context.Context, q ports.FeedQuery) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQ = q
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Event(nil), f.events...), nil
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFeed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFeed) lastQuery() ports.FeedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQ
}

func archiveEvent(id, title string, day int) domain.Event {
	return domain.Event{
		ID:          id,
		Title:       title,
		Description: "description of " + title,
		StartDate:   time.Date(2026, time.September, day, 20, 0, 0, 0, time.UTC),
		City:        "Lisbon",
		Country:     "Portugal",
		Latitude:    38.7,
		Longitude:   -9.1,
		Source:      domain.SourceArchive,
	}
}

func feedEvent(id, title string, day int) domain.Event {
	e := archiveEvent(id, title, day)
	e.City = "Porto"
	e.Latitude = 41.1
	e.Longitude = -8.6
	e.Source = domain.SourceFeed
	return e
}

func newTestService(archive *fakeArchive, feed *fakeFeed) *Service {
	metrics := observability.NewCacheMetrics(prometheus.NewRegistry(), "test", nil, zap.NewNop())
	return NewService(archive, feed, time.Minute, time.Hour, metrics, zap.NewNop())
}

func TestService_MergesAndSortsBothSources(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{events: []domain.Event{feedEvent("f1", "Folk Festival", 10)}}
	svc := newTestService(archive, feed)

	result, err := svc.Aggregate(context.Background(), Filters{})

	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, StatusFresh, result.Status)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "f1", result.Events[0].ID, "events must be sorted by start date")
	assert.Equal(t, "a1", result.Events[1].ID)
}

func TestService_FreshMergedCacheSkipsBothSources(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{events: []domain.Event{feedEvent("f1", "Folk Festival", 10)}}
	svc := newTestService(archive, feed)
	ctx := context.Background()

	first, err := svc.Aggregate(ctx, Filters{})
	require.NoError(t, err)

	second, err := svc.Aggregate(ctx, Filters{})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Events, second.Events)
	assert.Equal(t, 1, archive.callCount(), "cached response must not re-query the archive")
	assert.Equal(t, 1, feed.callCount(), "cached response must not re-query the feed")
}

func TestService_FilteredRequestDoesNotPolluteMergedCache(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{events: []domain.Event{feedEvent("f1", "Folk Festival", 10)}}
	svc := newTestService(archive, feed)
	ctx := context.Background()

	filtered, err := svc.Aggregate(ctx, Filters{Search: "fado", SearchType: SearchByName})
	require.NoError(t, err)
	require.Len(t, filtered.Events, 1)

	// The next unfiltered request must not see the filtered subset.
	full, err := svc.Aggregate(ctx, Filters{})
	require.NoError(t, err)
	assert.False(t, full.Cached)
	assert.Len(t, full.Events, 2)
}

func TestService_FeedFailureWithoutFallbackDegradesPartial(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{}
	feed.setErr(errors.New("feed unreachable"))
	svc := newTestService(archive, feed)

	result, err := svc.Aggregate(context.Background(), Filters{})

	require.NoError(t, err, "a dead feed must degrade, not fail the request")
	assert.Equal(t, StatusStale, result.Status)
	assert.False(t, result.Cached)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "a1", result.Events[0].ID)
}

func TestService_FeedFailureServesStaleFallback(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{events: []domain.Event{feedEvent("f1", "Folk Festival", 10)}}
	svc := newTestService(archive, feed)
	ctx := context.Background()

	good, err := svc.Aggregate(ctx, Filters{})
	require.NoError(t, err)

	// Invalidate so the merged cache is consulted as fallback, not fresh.
	svc.InvalidateInternal()
	svc.SetTTLs(time.Nanosecond, time.Hour)
	feed.setErr(errors.New("feed unreachable"))

	degraded, err := svc.Aggregate(ctx, Filters{})

	require.NoError(t, err)
	assert.Equal(t, StatusStaleFallback, degraded.Status)
	assert.True(t, degraded.Cached)
	assert.Equal(t, good.Events, degraded.Events)
}

func TestService_BoundingBoxFilter(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{
		archiveEvent("lisbon", "Fado Night", 20),
	}}
	feed := &fakeFeed{events: []domain.Event{feedEvent("porto", "Folk Festival", 10)}}
	svc := newTestService(archive, feed)

	// A box around Lisbon only.
	box := &BoundingBox{North: 39, South: 38, East: -8.5, West: -10}
	result, err := svc.Aggregate(context.Background(), Filters{Bounds: box})

	require.NoError(t, err)
	for _, e := range result.Events {
		if e.Source == domain.SourceArchive {
			assert.True(t, box.Contains(e.Latitude, e.Longitude))
		}
	}
	// The archive side is filtered locally; the box also rides to the feed.
	q := feed.lastQuery()
	assert.True(t, q.HasBounds)
	assert.Equal(t, box.North, q.North)
}

func TestService_SearchFilters(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{
		archiveEvent("a1", "Fado Night", 20),
		archiveEvent("a2", "Jazz Evening", 21),
	}}
	feed := &fakeFeed{}
	svc := newTestService(archive, feed)
	ctx := context.Background()

	byName, err := svc.Aggregate(ctx, Filters{Search: "fado", SearchType: SearchByName})
	require.NoError(t, err)
	require.Len(t, byName.Events, 1)
	assert.Equal(t, "a1", byName.Events[0].ID)

	byCity, err := svc.Aggregate(ctx, Filters{Search: "lisbon", SearchType: SearchByCity})
	require.NoError(t, err)
	assert.Len(t, byCity.Events, 2)

	byCountry, err := svc.Aggregate(ctx, Filters{Search: "spain", SearchType: SearchByCountry})
	require.NoError(t, err)
	assert.Empty(t, byCountry.Events)
}

func TestService_InternalCacheOutlivesMergedCache(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{}
	svc := newTestService(archive, feed)
	ctx := context.Background()

	_, err := svc.Aggregate(ctx, Filters{})
	require.NoError(t, err)

	// Filtered requests bypass the merged cache but reuse the archive list.
	_, err = svc.Aggregate(ctx, Filters{Search: "fado", SearchType: SearchByName})
	require.NoError(t, err)

	assert.Equal(t, 1, archive.callCount())
}

func TestService_InvalidateInternalForcesArchiveRequery(t *testing.T) {
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20)}}
	feed := &fakeFeed{}
	svc := newTestService(archive, feed)
	ctx := context.Background()

	_, err := svc.Aggregate(ctx, Filters{Search: "fado", SearchType: SearchByName})
	require.NoError(t, err)

	svc.InvalidateInternal()

	_, err = svc.Aggregate(ctx, Filters{Search: "fado", SearchType: SearchByName})
	require.NoError(t, err)
	assert.Equal(t, 2, archive.callCount())
}

func TestService_ArchiveFailurePropagates(t *testing.T) {
	archive := &fakeArchive{err: errors.New("table unavailable")}
	feed := &fakeFeed{}
	svc := newTestService(archive, feed)

	_, err := svc.Aggregate(context.Background(), Filters{})
	assert.Error(t, err)
	assert.Zero(t, feed.callCount(), "a failed archive query must not reach the feed")
}

func TestService_RecordsWithoutContentAreDropped(t *testing.T) {
	blank := archiveEvent("a2", "Untitled", 21)
	blank.Description = "   "
	archive := &fakeArchive{events: []domain.Event{archiveEvent("a1", "Fado Night", 20), blank}}
	feed := &fakeFeed{}
	svc := newTestService(archive, feed)

	result, err := svc.Aggregate(context.Background(), Filters{})

	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "a1", result.Events[0].ID)
}

func TestService_FeedLimitAppliedWhenRequestHasNone(t *testing.T) {
	archive := &fakeArchive{}
	feed := &fakeFeed{}
	svc := newTestService(archive, feed)
	svc.SetFeedLimit(25)

	_, err := svc.Aggregate(context.Background(), Filters{Search: "fado", SearchType: SearchByName})
	require.NoError(t, err)

	assert.Equal(t, 25, feed.lastQuery().Limit)
}
