package pagination

import (
	"sync"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/pkg/cache"
	"songarchive-backend/pkg/observability"
)

// DefaultPageTTL bounds how long a cached page may be served.
const DefaultPageTTL = 5 * time.Minute

// Partition identifies one cache partition: all pages fetched under the same
// sort field, sort direction and page size.
type Partition struct {
	SortField  string
	Descending bool
	PageSize   int
}

// CachedPage is the payload stored per (partition, page): the page data, the
// cursors recorded when it was fetched, and the collection total at storage
// time.
type CachedPage[T any] struct {
	Items []T
	First ports.Cursor
	Last  ports.Cursor
	Total int
}

// ItemCount reports how many records the page holds. It lets stats
// collection read page sizes without knowing the record type.
func (p CachedPage[T]) ItemCount() int {
	return len(p.Items)
}

// PageCache memoizes pages of one collection on the shared entry store.
// It never swallows fetch errors, it only ever answers hit or miss, and a
// miss on lookup is never an error.
type PageCache[T any] struct {
	store      *cache.Store
	collection string
	metrics    *observability.CacheMetrics

	mu             sync.Mutex
	ttl            time.Duration
	partitionWrite map[string]time.Time
}

// NewPageCache creates a page cache for collection on top of store. A zero
// ttl selects DefaultPageTTL.
func NewPageCache[T any](store *cache.Store, collection string, ttl time.Duration, metrics *observability.CacheMetrics) *PageCache[T] {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache[T]{
		store:          store,
		collection:     collection,
		ttl:            ttl,
		metrics:        metrics,
		partitionWrite: make(map[string]time.Time),
	}
}

// Collection returns the collection this cache serves.
func (c *PageCache[T]) Collection() string {
	return c.collection
}

// SetTTL applies a new lifetime to future writes. Already cached pages keep
// the TTL they were stored with. Non-positive values are ignored.
func (c *PageCache[T]) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

func (c *PageCache[T]) key(p Partition, page int) cache.Key {
	return cache.Key{
		Collection: c.collection,
		SortField:  p.SortField,
		Descending: p.Descending,
		PageSize:   p.PageSize,
		Page:       page,
	}
}

// GetPage returns the cached page for the exact partition and page number,
// or reports a miss. Expired entries are evicted by the underlying store.
func (c *PageCache[T]) GetPage(p Partition, page int) (CachedPage[T], bool) {
	payload, ok := c.store.Get(c.key(p, page).String())
	if !ok {
		c.metrics.Miss("pages", c.collection)
		return CachedPage[T]{}, false
	}

	cached, ok := payload.(CachedPage[T])
	if !ok {
		// A foreign payload under our key means the key scheme was
		// violated; treat as miss and drop it.
		c.store.Delete(c.key(p, page).String())
		c.metrics.Miss("pages", c.collection)
		return CachedPage[T]{}, false
	}

	c.metrics.Hit("pages", c.collection)
	return cached, true
}

// SetPage stores or overwrites the page for the exact partition and page
// number. Each page's validity runs from its own write time; the partition's
// last-write timestamp is refreshed for statistics only.
func (c *PageCache[T]) SetPage(p Partition, page int, data CachedPage[T]) {
	c.mu.Lock()
	ttl := c.ttl
	c.partitionWrite[c.key(p, 0).PartitionID()] = time.Now()
	c.mu.Unlock()

	c.store.Set(c.key(p, page).String(), data, ttl)
}

// InvalidatePartition removes every page of the one matching partition.
func (c *PageCache[T]) InvalidatePartition(p Partition) {
	partition := c.key(p, 0).PartitionID()
	c.store.DeleteFunc(func(key string) bool {
		parsed, err := cache.ParseKey(key)
		if err != nil {
			return false
		}
		return parsed.Collection == c.collection &&
			parsed.SortField == p.SortField &&
			parsed.Descending == p.Descending &&
			parsed.PageSize == p.PageSize
	})

	c.mu.Lock()
	delete(c.partitionWrite, partition)
	c.mu.Unlock()

	c.metrics.Invalidation("pages", c.collection)
}

// InvalidateCollection removes every partition of this collection, matching
// the parsed collection component exactly, never by string prefix.
func (c *PageCache[T]) InvalidateCollection() {
	c.store.DeleteFunc(func(key string) bool {
		parsed, err := cache.ParseKey(key)
		if err != nil {
			return false
		}
		return parsed.Collection == c.collection
	})

	c.mu.Lock()
	c.partitionWrite = make(map[string]time.Time)
	c.mu.Unlock()

	c.metrics.Invalidation("pages", c.collection)
}

// LastWrite reports when the partition last had a page written, for
// observability only.
func (c *PageCache[T]) LastWrite(p Partition) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.partitionWrite[c.key(p, 0).PartitionID()]
	return t, ok
}

// CollectionStats summarizes one collection's cached footprint.
type CollectionStats struct {
	Pages int `json:"pages"`
	Items int `json:"items"`
}

// Stats summarizes the whole pagination tier on a store.
type Stats struct {
	Partitions    int                        `json:"partitions"`
	Pages         int                        `json:"pages"`
	PerCollection map[string]CollectionStats `json:"perCollection"`
}

// CollectStats walks a store's keys and reports partition and page counts.
// Observability only; no correctness depends on it. Unparseable keys belong
// to other tiers and are skipped.
func CollectStats(store *cache.Store) Stats {
	stats := Stats{PerCollection: make(map[string]CollectionStats)}
	partitions := make(map[string]struct{})

	for _, key := range store.Keys() {
		parsed, err := cache.ParseKey(key)
		if err != nil {
			continue
		}
		partitions[parsed.PartitionID()] = struct{}{}
		stats.Pages++

		items := parsed.PageSize
		if payload, _, ok := store.GetStale(key); ok {
			if page, ok := payload.(interface{ ItemCount() int }); ok {
				items = page.ItemCount()
			}
		}

		per := stats.PerCollection[parsed.Collection]
		per.Pages++
		per.Items += items
		stats.PerCollection[parsed.Collection] = per
	}

	stats.Partitions = len(partitions)
	return stats
}
