package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide HTTP and outbox metrics. Methods are nil-safe.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec

	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
	OutboxPending   prometheus.Gauge
}

// New creates and registers the platform metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revalidation_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "revalidation_outbox_published_total",
			Help: "Outbox events published to the broker",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "revalidation_outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed and will be retried",
		}),
		OutboxPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "revalidation_outbox_batch_size",
			Help: "Size of the last outbox batch fetched",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) IncOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncOutboxFailed() {
	if m == nil {
		return
	}
	m.OutboxFailed.Inc()
}

func (m *Metrics) SetOutboxBatch(n int) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}
