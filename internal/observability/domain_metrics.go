package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_cache_lookups_total",
			Help: "Total number of cache lookups by result (hit or miss).",
		},
		[]string{"result"},
	)
	cachePersistenceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_cache_persistence_failures_total",
			Help: "Total number of cache load/save failures that were absorbed.",
		},
		[]string{"op"},
	)
	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlscribe_cache_entries",
			Help: "Number of entries in the most recently loaded cache mapping.",
		},
	)
	generationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_generation_requests_total",
			Help: "Total number of model generation attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	generationLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlscribe_generation_latency_ms",
			Help:    "Model generation latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000},
		},
	)
	rejectedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_rejected_requests_total",
			Help: "Total number of generate requests rejected before generation, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		cacheLookupsTotal,
		cachePersistenceFailuresTotal,
		cacheEntries,
		generationRequestsTotal,
		generationLatencyMs,
		rejectedRequestsTotal,
	)
}

func ObserveCacheLookup(hit bool, entries int) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
	if entries < 0 {
		entries = 0
	}
	cacheEntries.Set(float64(entries))
}

func IncrementCachePersistenceFailure(op string) {
	cachePersistenceFailuresTotal.WithLabelValues(op).Inc()
}

func ObserveGeneration(provider, outcome string, elapsed time.Duration) {
	generationRequestsTotal.WithLabelValues(provider, outcome).Inc()
	generationLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func IncrementRejectedRequest(reason string) {
	rejectedRequestsTotal.WithLabelValues(reason).Inc()
}
