// Package metrics provides Prometheus instrumentation for bountyd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Registry domain metrics
	bountyCreateTotal *prometheus.CounterVec

	// Bounty domain metrics
	submissionTotal *prometheus.CounterVec
	triageTotal     *prometheus.CounterVec
	closeTotal      *prometheus.CounterVec
	settlementPaid  *prometheus.HistogramVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Bounty creation counter
	bountyCreateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_create_total",
			Help: "Total number of bounties created",
		},
		[]string{"status"},
	)

	// Submission counter
	submissionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_submission_total",
			Help: "Total number of report submissions",
		},
		[]string{"status"},
	)

	// Triage counter (accept/reject/severity/visibility)
	triageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_triage_total",
			Help: "Total number of triage operations",
		},
		[]string{"operation", "status"},
	)

	// Close counter
	closeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_close_total",
			Help: "Total number of bounty settlements",
		},
		[]string{"kind", "status"},
	)

	// Settlement winner count histogram; settlement cost is
	// O(submissions), so the distribution matters operationally
	settlementPaid = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bounty_settlement_winners",
			Help:    "Number of winners per settlement",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"kind"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
