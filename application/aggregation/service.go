// Package aggregation serves a unified event list merged from the internal
// archive collection and an external events feed, bounded by two independent
// TTL caches and degrading to stale data when the feed is unreachable.
package aggregation

import (
	"context"
	"strings"
	"sync"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/cache"
	"songarchive-backend/pkg/observability"

	"go.uber.org/zap"
)

const (
	// DefaultMergedTTL bounds the combined result; the feed is cheap to
	// re-query, so it stays short.
	DefaultMergedTTL = 10 * time.Minute

	// DefaultInternalTTL bounds the raw archive list. The archive changes
	// far less often than it is read, so it outlives the merged cache.
	DefaultInternalTTL = 45 * time.Minute

	mergedCacheKey   = "aggregated-events"
	internalCacheKey = "internal-events"
)

// Status flags how the response relates to live data.
type Status string

const (
	// StatusFresh marks a response computed from live sources.
	StatusFresh Status = ""
	// StatusStale marks a partial internal-only response: the feed failed
	// and no fallback cache existed.
	StatusStale Status = "stale"
	// StatusStaleFallback marks a response served from the last good
	// merged cache after the feed failed.
	StatusStaleFallback Status = "stale-fallback"
)

// SearchType selects which fields a free-text search matches.
type SearchType string

const (
	SearchByName     SearchType = "name"
	SearchByCity     SearchType = "city"
	SearchByCountry  SearchType = "country"
	SearchByKeywords SearchType = "keywords"
)

// BoundingBox is a geographic filter window.
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether the coordinates fall inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat <= b.North && lat >= b.South && lng <= b.East && lng >= b.West
}

// Filters are the optional request parameters. A request with no filters is
// the only kind allowed to refresh the merged cache.
type Filters struct {
	Bounds        *BoundingBox
	Search        string
	SearchType    SearchType
	InternalLimit int
	ExternalLimit int
}

// Empty reports whether the request carries no filters at all.
func (f Filters) Empty() bool {
	return f.Bounds == nil && strings.TrimSpace(f.Search) == "" &&
		f.InternalLimit <= 0 && f.ExternalLimit <= 0
}

// Result is the aggregation response: the combined sorted list, whether it
// was served from cache, and a degradation flag.
type Result struct {
	Events []domain.Event `json:"events"`
	Cached bool           `json:"cached"`
	Status Status         `json:"status,omitempty"`
}

// Service merges internal and external events. It owns its cache store,
// constructed once at process start and injected into request handlers, so
// tests run against isolated instances.
type Service struct {
	internal ports.EventRepository
	feed     ports.EventFeed
	store    *cache.Store
	metrics  *observability.CacheMetrics
	logger   *zap.Logger

	mu          sync.RWMutex
	mergedTTL   time.Duration
	internalTTL time.Duration
	feedLimit   int
}

// NewService creates an aggregation service. Zero TTLs select the defaults.
// The store intentionally runs without a sweeper: an expired merged entry is
// no longer fresh but remains reachable as the stale fallback.
func NewService(internal ports.EventRepository, feed ports.EventFeed, mergedTTL, internalTTL time.Duration, metrics *observability.CacheMetrics, logger *zap.Logger) *Service {
	if mergedTTL <= 0 {
		mergedTTL = DefaultMergedTTL
	}
	if internalTTL <= 0 {
		internalTTL = DefaultInternalTTL
	}
	return &Service{
		internal:    internal,
		feed:        feed,
		store:       cache.NewStore(),
		mergedTTL:   mergedTTL,
		internalTTL: internalTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

// SetTTLs applies new cache lifetimes at runtime. Entries already stored
// keep the TTL they were written with; non-positive values are ignored.
func (s *Service) SetTTLs(merged, internal time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if merged > 0 {
		s.mergedTTL = merged
	}
	if internal > 0 {
		s.internalTTL = internal
	}
}

// SetFeedLimit caps how many feed events an unlimited request pulls in. Zero
// disables the cap.
func (s *Service) SetFeedLimit(n int) {
	if n < 0 {
		return
	}
	s.mu.Lock()
	s.feedLimit = n
	s.mu.Unlock()
}

func (s *Service) ttls() (merged, internal time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergedTTL, s.internalTTL
}

// Aggregate serves the combined event list for the given filters.
//
// Unfiltered requests are answered from the merged cache while it is fresh.
// Otherwise the internal list (cached under its own longer TTL) is filtered
// and merged with a live feed fetch; only a fully successful, unfiltered
// merge refreshes the merged cache. A feed failure after its retry falls
// back to re-filtering the last good merged cache instead of propagating
// the error.
func (s *Service) Aggregate(ctx context.Context, f Filters) (*Result, error) {
	if f.Empty() {
		if merged, ok := s.freshMerged(); ok {
			s.metrics.Hit("aggregation", "events")
			return &Result{Events: merged, Cached: true}, nil
		}
		s.metrics.Miss("aggregation", "events")
	}

	internal, err := s.internalEvents(ctx)
	if err != nil {
		// The archive query is not retried: a failing archive fails the
		// request, but cached state from prior successes stays intact.
		return nil, err
	}

	filtered := applyFilters(internal, f, f.InternalLimit)

	external, feedErr := s.feed.FetchEvents(ctx, s.feedQuery(f))
	if feedErr != nil {
		s.logger.Warn("External events feed failed after retry, degrading",
			zap.Error(feedErr))
		return s.degraded(filtered, f), nil
	}

	merged := append(filtered, presentable(external, f.ExternalLimit)...)
	domain.SortEventsByStartDate(merged)

	if f.Empty() {
		mergedTTL, _ := s.ttls()
		s.store.Set(mergedCacheKey, merged, mergedTTL)
	}

	return &Result{Events: merged, Cached: false}, nil
}

// InvalidateInternal drops the cached archive list. Archive event mutations
// land here so the next aggregation re-reads the collection.
func (s *Service) InvalidateInternal() {
	s.store.Delete(internalCacheKey)
	s.metrics.Invalidation("aggregation", "events")
}

// freshMerged returns the merged cache only while it is inside its TTL.
func (s *Service) freshMerged() ([]domain.Event, bool) {
	mergedTTL, _ := s.ttls()
	payload, storedAt, ok := s.store.GetStale(mergedCacheKey)
	if !ok || time.Since(storedAt) >= mergedTTL {
		return nil, false
	}
	events, ok := payload.([]domain.Event)
	return events, ok
}

// internalEvents returns the normalized archive list, re-querying only when
// its cache has expired.
func (s *Service) internalEvents(ctx context.Context) ([]domain.Event, error) {
	if payload, ok := s.store.Get(internalCacheKey); ok {
		if events, ok := payload.([]domain.Event); ok {
			s.metrics.Hit("aggregation", "events_internal")
			return events, nil
		}
	}
	s.metrics.Miss("aggregation", "events_internal")

	events, err := s.internal.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	normalized := presentable(events, 0)
	_, internalTTL := s.ttls()
	s.store.Set(internalCacheKey, normalized, internalTTL)
	return normalized, nil
}

// degraded builds the response for a failed feed fetch: the last good merged
// cache re-filtered with the current request's filters, or, with no cache to
// fall back on, the partial internal-only result. The merged cache is left
// untouched so a partial result is never cached.
func (s *Service) degraded(internalFiltered []domain.Event, f Filters) *Result {
	payload, _, ok := s.store.GetStale(mergedCacheKey)
	if ok {
		if stale, isEvents := payload.([]domain.Event); isEvents {
			refiltered := applyFilters(stale, f, f.InternalLimit+f.ExternalLimit)
			return &Result{Events: refiltered, Cached: true, Status: StatusStaleFallback}
		}
	}
	return &Result{Events: internalFiltered, Cached: false, Status: StatusStale}
}

// feedQuery translates the request filters into the feed's parameters.
func (s *Service) feedQuery(f Filters) ports.FeedQuery {
	q := ports.FeedQuery{
		From:  time.Now(),
		Limit: f.ExternalLimit,
	}
	if q.Limit <= 0 {
		s.mu.RLock()
		q.Limit = s.feedLimit
		s.mu.RUnlock()
	}
	if f.Search != "" {
		if f.SearchType == SearchByKeywords {
			q.Keywords = strings.Fields(f.Search)
		} else {
			q.Search = f.Search
		}
	}
	if f.Bounds != nil {
		q.HasBounds = true
		q.North, q.South = f.Bounds.North, f.Bounds.South
		q.East, q.West = f.Bounds.East, f.Bounds.West
	}
	return q
}

// presentable drops records without a usable title and description and
// applies an optional result cap.
func presentable(events []domain.Event, limit int) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if !e.HasContent() {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// applyFilters narrows events by bounding box and free-text search, capped
// at limit when positive.
func applyFilters(events []domain.Event, f Filters, limit int) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if f.Bounds != nil && !f.Bounds.Contains(e.Latitude, e.Longitude) {
			continue
		}
		if !matchesSearch(e, f.Search, f.SearchType) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func matchesSearch(e domain.Event, search string, st SearchType) bool {
	search = strings.TrimSpace(strings.ToLower(search))
	if search == "" {
		return true
	}

	switch st {
	case SearchByCity:
		return strings.Contains(strings.ToLower(e.City), search)
	case SearchByCountry:
		return strings.Contains(strings.ToLower(e.Country), search)
	case SearchByKeywords:
		for _, kw := range e.Keywords {
			for _, term := range strings.Fields(search) {
				if strings.Contains(strings.ToLower(kw), term) {
					return true
				}
			}
		}
		return false
	default:
		// Name search also matches city, country and keywords: the
		// backoffice search box is a catch-all.
		if strings.Contains(strings.ToLower(e.Title), search) {
			return true
		}
		if strings.Contains(strings.ToLower(e.City), search) {
			return true
		}
		if strings.Contains(strings.ToLower(e.Country), search) {
			return true
		}
		for _, kw := range e.Keywords {
			if strings.Contains(strings.ToLower(kw), search) {
				return true
			}
		}
		return false
	}
}
