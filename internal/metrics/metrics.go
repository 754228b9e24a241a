// Package metrics declares the Prometheus collectors for anihub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AniListRequests counts upstream calls by outcome: success, http_error,
	// transport_error, rejected (circuit open).
	AniListRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anihub_anilist_requests_total",
			Help: "AniList GraphQL requests by outcome",
		},
		[]string{"outcome"},
	)

	AniListRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anihub_anilist_request_duration_seconds",
			Help:    "Latency of AniList GraphQL requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anihub_records_normalized_total",
			Help: "Media records produced by the normalizer",
		},
	)

	// NormalizeFailures is labelled with the offending field ("envelope" for
	// a malformed response).
	NormalizeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anihub_normalize_failures_total",
			Help: "Items rejected by the normalizer, by field",
		},
		[]string{"field"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anihub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CatalogRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anihub_catalog_runs_total",
			Help: "Fetch runs persisted to the catalog",
		},
	)
)
