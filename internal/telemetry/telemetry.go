package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recompute metrics
var (
	// RecomputeRunsTotal counts scheduled and on-demand recomputes by job and status
	RecomputeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_recompute_runs_total",
			Help: "Recompute runs by job and status",
		},
		[]string{"job", "status"},
	)

	// RecomputeDuration tracks recompute latency in seconds
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_recompute_duration_seconds",
			Help:    "Recompute duration in seconds",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"job"},
	)

	// RecordsWrittenTotal counts aggregate records written by kind (daily/weekly/summary)
	RecordsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_records_written_total",
			Help: "Aggregate records written by kind",
		},
		[]string{"kind"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts requests by route pattern, method and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Run statuses used as label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ObserveRecompute records one recompute run
func ObserveRecompute(job string, seconds float64, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	RecomputeRunsTotal.WithLabelValues(job, status).Inc()
	RecomputeDuration.WithLabelValues(job).Observe(seconds)
}
