package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector exports Prometheus metrics for the request lifecycle and
// every reliability layer. All methods are nil-safe so instrumented code
// never has to guard call sites.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	dedupHits *prometheus.CounterVec

	standbyRequests *prometheus.CounterVec

	tokenOps *prometheus.CounterVec

	rateLimiterTokens *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, which tests and multi-client programs use to avoid duplicate
// registration.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_requests_total",
				Help: "Total number of requests by operation, backend and outcome",
			},
			[]string{"operation", "backend", "outcome"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "odclient_request_duration_seconds",
				Help:    "Duration of requests in seconds, retries and backoff included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "odclient_requests_in_flight",
				Help: "Number of requests currently in flight",
			},
			[]string{"operation"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"operation", "attempt"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_cache_hits_total",
				Help: "Total number of read cache hits",
			},
			[]string{"operation"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_cache_misses_total",
				Help: "Total number of read cache misses",
			},
			[]string{"operation"},
		),
		cacheSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "odclient_cache_size",
				Help: "Current number of entries in the read cache",
			},
			[]string{"name"},
		),
		dedupHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_dedup_hits_total",
				Help: "Total number of reads coalesced into an in-flight request",
			},
			[]string{"operation"},
		),
		standbyRequests: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_standby_requests_total",
				Help: "Total number of requests served by the standby backend",
			},
			[]string{"operation", "outcome"},
		),
		tokenOps: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_token_operations_total",
				Help: "Total number of token store operations",
			},
			[]string{"op"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "odclient_rate_limiter_tokens",
				Help: "Current number of available rate limiter tokens",
			},
			[]string{"name"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "odclient_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind", "operation"},
		),
		registry: registry,
	}
}

// RecordRequest records one finished request with its outcome and duration.
func (mc *MetricsCollector) RecordRequest(operation, backend, outcome string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.requestsTotal.WithLabelValues(operation, backend, outcome).Inc()
	mc.requestDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(operation string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(operation).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(operation string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(operation).Dec()
}

// RecordRetry counts one retry attempt.
func (mc *MetricsCollector) RecordRetry(operation string, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(operation, strconv.Itoa(attempt)).Inc()
}

// RecordCacheHit counts a read served from cache.
func (mc *MetricsCollector) RecordCacheHit(operation string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss counts a read that had to hit the network.
func (mc *MetricsCollector) RecordCacheMiss(operation string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(operation).Inc()
}

// RecordCacheSize sets the cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(name string, size int) {
	if mc == nil {
		return
	}
	mc.cacheSize.WithLabelValues(name).Set(float64(size))
}

// RecordDedupHit counts a read coalesced into another in-flight request.
func (mc *MetricsCollector) RecordDedupHit(operation string) {
	if mc == nil {
		return
	}
	mc.dedupHits.WithLabelValues(operation).Inc()
}

// RecordStandbyRequest counts a request served by the standby backend.
func (mc *MetricsCollector) RecordStandbyRequest(operation, outcome string) {
	if mc == nil {
		return
	}
	mc.standbyRequests.WithLabelValues(operation, outcome).Inc()
}

// RecordTokenOp counts a token store operation (load, save, clear).
func (mc *MetricsCollector) RecordTokenOp(op string) {
	if mc == nil {
		return
	}
	mc.tokenOps.WithLabelValues(op).Inc()
}

// RecordRateLimiterTokens sets the available-token gauge.
func (mc *MetricsCollector) RecordRateLimiterTokens(name string, tokens int) {
	if mc == nil {
		return
	}
	mc.rateLimiterTokens.WithLabelValues(name).Set(float64(tokens))
}

// RecordError counts one classified failure.
func (mc *MetricsCollector) RecordError(kind, operation string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(kind, operation).Inc()
}

// Registry exposes the registerer the collector was built on. Returns nil
// unless the registerer is a *prometheus.Registry, e.g. one supplied via
// NewMetricsCollectorWithRegistry.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	if reg, ok := mc.registry.(*prometheus.Registry); ok {
		return reg
	}
	return nil
}
