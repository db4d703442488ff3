package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"revalidation/internal/cycle/models"
)

// Metrics provides observability for the cycle module. All methods are safe
// on a nil receiver so tests can run without a registry.
type Metrics struct {
	// Evidence read latency and degradation by category
	SnapshotReadLatency *prometheus.HistogramVec
	SnapshotDegraded    *prometheus.CounterVec

	// Lifecycle transitions by kind and outcome
	Transitions *prometheus.CounterVec

	// Full operation latency (initialize, complete, start_next)
	OperationLatency *prometheus.HistogramVec

	Exports    *prometheus.CounterVec
	Reconciled prometheus.Counter
}

// New registers the cycle metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SnapshotReadLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revalidation_snapshot_read_duration_seconds",
			Help:    "Duration of evidence reads during snapshot assembly by category",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"category"}),

		SnapshotDegraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revalidation_snapshot_degraded_total",
			Help: "Evidence reads that degraded to an empty category",
		}, []string{"category"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revalidation_cycle_transitions_total",
			Help: "Cycle lifecycle transitions by kind and outcome",
		}, []string{"transition", "outcome"}),

		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revalidation_cycle_operation_duration_seconds",
			Help:    "Duration of lifecycle operations including snapshot assembly",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revalidation_exports_total",
			Help: "Archived snapshot exports by format and outcome",
		}, []string{"format", "outcome"}),

		Reconciled: f.NewCounter(prometheus.CounterOpts{
			Name: "revalidation_audit_reconciled_total",
			Help: "Audit records written by the reconciliation sweep",
		}),
	}
}

// ObserveRead records the latency of one evidence read.
func (m *Metrics) ObserveRead(category models.Category, d time.Duration) {
	if m != nil {
		m.SnapshotReadLatency.WithLabelValues(string(category)).Observe(d.Seconds())
	}
}

func (m *Metrics) IncDegraded(category models.Category) {
	if m != nil {
		m.SnapshotDegraded.WithLabelValues(string(category)).Inc()
	}
}

// IncTransition records a transition attempt; outcome is "ok" or an error code.
func (m *Metrics) IncTransition(transition, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(transition, outcome).Inc()
	}
}

// ObserveOperation records an operation's duration from start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncExport(format, outcome string) {
	if m != nil {
		m.Exports.WithLabelValues(format, outcome).Inc()
	}
}

func (m *Metrics) IncReconciled() {
	if m != nil {
		m.Reconciled.Inc()
	}
}
