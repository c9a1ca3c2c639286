package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: translations served from the cache.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "babelbot_cache_hits_total",
			Help: "Total number of translation cache hits.",
		},
	)

	// Counter: translations that had to call the model.
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "babelbot_cache_misses_total",
			Help: "Total number of translation cache misses.",
		},
	)

	// Counter: outbound model calls by outcome (ok, http_error, parse_error, transport_error).
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelbot_model_requests_total",
			Help: "Total number of model API requests by outcome.",
		},
		[]string{"outcome"},
	)

	// Histogram: model call latency in seconds.
	ModelRequestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "babelbot_model_request_seconds",
			Help:    "Latency of model API requests in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Counter: cache entries removed by the retention purge.
	PurgedEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "babelbot_purged_entries_total",
			Help: "Total number of cache entries removed by retention purges.",
		},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		ModelRequestsTotal,
		ModelRequestSeconds,
		PurgedEntriesTotal,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
