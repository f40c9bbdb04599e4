package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes Prometheus metrics for the aggregation core.
type Recorder struct {
	cacheOps          *prometheus.CounterVec
	coalescerRequests *prometheus.CounterVec
	providerRequests  *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	rateLimited       prometheus.Counter
	quoteUpdates      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_cache_ops_total",
				Help: "Cache operations by category and outcome (hit, miss, error)",
			},
			[]string{"category", "outcome"},
		),
		coalescerRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_coalescer_requests_total",
				Help: "Coalescer requests by outcome (initiated, attached)",
			},
			[]string{"outcome"},
		),
		providerRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_provider_requests_total",
				Help: "Upstream provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_provider_duration_seconds",
				Help:    "Duration of upstream provider calls in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),
		rateLimited: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "finsight_rate_limited_total",
				Help: "Chat requests rejected by the per-user rate limit",
			},
		),
		quoteUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_quote_updates_total",
				Help: "Live quote updates written to the cache store",
			},
			[]string{"symbol"},
		),
	}
}

// RecordCacheHit records a cache hit for a category.
func (r *Recorder) RecordCacheHit(category string) {
	r.cacheOps.WithLabelValues(category, "hit").Inc()
}

// RecordCacheMiss records a cache miss for a category.
func (r *Recorder) RecordCacheMiss(category string) {
	r.cacheOps.WithLabelValues(category, "miss").Inc()
}

// RecordCacheError records a cache backend failure.
func (r *Recorder) RecordCacheError(category string) {
	r.cacheOps.WithLabelValues(category, "error").Inc()
}

// RecordCoalesced records a caller attached to an existing in-flight fetch.
func (r *Recorder) RecordCoalesced() {
	r.coalescerRequests.WithLabelValues("attached").Inc()
}

// RecordFetchInitiated records a caller that started a new fetch.
func (r *Recorder) RecordFetchInitiated() {
	r.coalescerRequests.WithLabelValues("initiated").Inc()
}

// RecordProviderCall records an upstream call outcome and its latency.
func (r *Recorder) RecordProviderCall(provider, outcome string, seconds float64) {
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
	r.providerLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordRateLimited records a rejected chat request.
func (r *Recorder) RecordRateLimited() {
	r.rateLimited.Inc()
}

// RecordQuoteUpdate records a live quote written for a symbol.
func (r *Recorder) RecordQuoteUpdate(symbol string) {
	r.quoteUpdates.WithLabelValues(symbol).Inc()
}
