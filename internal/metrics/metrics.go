// Package metrics registers the Prometheus instrumentation the
// supervisor loop and audit sink emit into. Grounded on the teacher's
// internal/escrow/metrics.go promauto idiom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles every metric the supervisor loop touches.
type Collector struct {
	IterationDuration   *prometheus.HistogramVec
	HazardTotal         *prometheus.CounterVec
	AuditSignFailures   prometheus.Counter
	TelemetryQueueFull  prometheus.Counter
	BufferTruncations   prometheus.Counter
	SecondaryLinkErrors prometheus.Counter
}

// New creates and registers every metric against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test packages.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		IterationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supervisor_iteration_duration_seconds",
				Help:    "Wall-clock duration of one supervisor loop iteration.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"outcome"}, // "heartbeat" or "hazard"
		),
		HazardTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_hazard_total",
				Help: "Hazards observed by reason_tag.",
			},
			[]string{"reason"},
		),
		AuditSignFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "supervisor_audit_sign_failures_total",
			Help: "Audit records that fell back to an unsigned envelope.",
		}),
		TelemetryQueueFull: factory.NewCounter(prometheus.CounterOpts{
			Name: "supervisor_telemetry_queue_full_total",
			Help: "Audit envelopes dropped at the telemetry transport boundary.",
		}),
		BufferTruncations: factory.NewCounter(prometheus.CounterOpts{
			Name: "supervisor_audit_buffer_truncations_total",
			Help: "Audit records/envelopes that exceeded their fixed buffer budget.",
		}),
		SecondaryLinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "supervisor_secondary_link_errors_total",
			Help: "Secondary Link half-transaction failures (TransientLink).",
		}),
	}
}
