// Package metrics registers the service's Prometheus collectors with the
// default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counter for quiz submissions
	AttemptsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_submitted_total",
			Help: "Total number of quiz attempts submitted",
		},
		[]string{"status"}, // status: completed/pending
	)

	AttemptsGraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempts_graded_total",
			Help: "Total number of manual grading operations",
		},
	)

	SubmitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_submit_duration_seconds",
			Help:    "Time spent grading and persisting a submission",
			Buckets: prometheus.DefBuckets,
		},
	)

	QuizImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_imports_total",
			Help: "Total number of spreadsheet imports",
		},
		[]string{"status"}, // status: success/failure
	)

	DashboardSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_sync_duration_seconds",
			Help:    "Time spent recomputing an educator dashboard",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Lazy reads, labelled hit when the cached document was fresh enough
	DashboardCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_results_total",
			Help: "Dashboard reads by cache outcome",
		},
		[]string{"result"},
	)

	DashboardRefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_refresh_failures_total",
			Help: "Eager dashboard refreshes that failed and were swallowed",
		},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
