package handlers

import (
	"net/http"

	"songarchive-backend/application/pagination"
	"songarchive-backend/pkg/cache"
	"songarchive-backend/pkg/common"
	"songarchive-backend/pkg/observability"
)

// SystemHandler exposes cache introspection for operators. Admin only.
type SystemHandler struct {
	store   *cache.Store
	metrics *observability.CacheMetrics
}

// NewSystemHandler creates the system handler over the shared page store.
func NewSystemHandler(store *cache.Store, metrics *observability.CacheMetrics) *SystemHandler {
	return &SystemHandler{store: store, metrics: metrics}
}

// CacheStats reports partition and page counts per collection. The gauges
// and the CloudWatch export are refreshed as a side effect, so scraping this
// endpoint doubles as the stats flush.
func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := pagination.CollectStats(h.store)

	h.metrics.SetPartitions(stats.Partitions)
	for collection, per := range stats.PerCollection {
		h.metrics.SetPages(collection, per.Pages)
	}
	h.metrics.FlushToCloudWatch(r.Context(), stats.Partitions, stats.Pages)

	common.RespondJSON(w, http.StatusOK, stats)
}

// FlushCache clears the shared page store.
func (h *SystemHandler) FlushCache(w http.ResponseWriter, r *http.Request) {
	removed := h.store.Len()
	h.store.Clear()
	common.RespondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
