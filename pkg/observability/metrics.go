package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CacheMetrics exposes cache behavior as Prometheus series and optionally
// mirrors the headline numbers to CloudWatch for the Lambda deployment,
// where no scrape target exists.
type CacheMetrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	pages         *prometheus.GaugeVec
	partitions    prometheus.Gauge

	namespace string
	cw        *cloudwatch.Client
	logger    *zap.Logger
}

// NewCacheMetrics registers the cache metric series on reg. The CloudWatch
// client may be nil; mirroring is then disabled.
func NewCacheMetrics(reg prometheus.Registerer, namespace string, cw *cloudwatch.Client, logger *zap.Logger) *CacheMetrics {
	m := &CacheMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_cache_hits_total",
			Help: "Cache hits by tier and collection.",
		}, []string{"tier", "collection"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_cache_misses_total",
			Help: "Cache misses by tier and collection.",
		}, []string{"tier", "collection"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_cache_invalidations_total",
			Help: "Explicit cache invalidations by tier and collection.",
		}, []string{"tier", "collection"}),
		pages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "archive_cache_pages",
			Help: "Cached pages currently held, by collection.",
		}, []string{"collection"}),
		partitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "archive_cache_partitions",
			Help: "Distinct pagination cache partitions currently held.",
		}),
		namespace: namespace,
		cw:        cw,
		logger:    logger,
	}

	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.invalidations, m.pages, m.partitions)
	}
	return m
}

// Hit records a cache hit.
func (m *CacheMetrics) Hit(tier, collection string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(tier, collection).Inc()
}

// Miss records a cache miss.
func (m *CacheMetrics) Miss(tier, collection string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(tier, collection).Inc()
}

// Invalidation records an explicit invalidation.
func (m *CacheMetrics) Invalidation(tier, collection string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(tier, collection).Inc()
}

// SetPages updates the cached-page gauge for a collection.
func (m *CacheMetrics) SetPages(collection string, n int) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(collection).Set(float64(n))
}

// SetPartitions updates the partition gauge.
func (m *CacheMetrics) SetPartitions(n int) {
	if m == nil {
		return
	}
	m.partitions.Set(float64(n))
}

// FlushToCloudWatch publishes the current partition and page totals as
// CloudWatch metrics. Failures are logged and dropped, observability must
// never fail a request path.
func (m *CacheMetrics) FlushToCloudWatch(ctx context.Context, partitions, pages int) {
	if m == nil || m.cw == nil {
		return
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("CachePartitions"),
				Value:      aws.Float64(float64(partitions)),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  aws.Time(time.Now()),
			},
			{
				MetricName: aws.String("CachedPages"),
				Value:      aws.Float64(float64(pages)),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  aws.Time(time.Now()),
			},
		},
	}

	if _, err := m.cw.PutMetricData(ctx, input); err != nil && m.logger != nil {
		m.logger.Warn("Failed to flush cache metrics to CloudWatch", zap.Error(err))
	}
}
