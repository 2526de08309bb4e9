// Package metrics provides Prometheus metrics for the document core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuditWriteFailures prometheus.Counter
	IdempotentReplays  prometheus.Counter
	VersionsAppended   prometheus.Counter
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdbrowse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mdbrowse_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		AuditWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mdbrowse_audit_write_failures_total",
				Help: "Audit entries that could not be persisted",
			},
		),
		IdempotentReplays: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mdbrowse_idempotent_replays_total",
				Help: "Mutating requests answered from the idempotency cache",
			},
		),
		VersionsAppended: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mdbrowse_versions_appended_total",
				Help: "Document versions written to the ledger",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
