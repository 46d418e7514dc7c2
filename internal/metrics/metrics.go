package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecopy_provider_calls_total",
			Help: "Generation calls by tier and outcome kind",
		},
		[]string{"tier", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagecopy_provider_call_seconds",
			Help:    "Wall-clock duration of generation calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"tier"},
	)

	RateLimitBackoffs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagecopy_rate_limit_backoffs_total",
			Help: "Number of rate-limit backoff waits",
		},
	)

	ParseStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecopy_parse_strategy_total",
			Help: "Response parses by winning strategy",
		},
		[]string{"strategy"},
	)

	BatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecopy_batches_total",
			Help: "Mapping batches by outcome",
		},
		[]string{"outcome"},
	)

	SlotsDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagecopy_detected_slots",
			Help:    "Slots found per detection run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
	)

	ArchiveCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecopy_archive_cache_total",
			Help: "Run archive cache lookups by kind and result",
		},
		[]string{"kind", "result"},
	)
)
