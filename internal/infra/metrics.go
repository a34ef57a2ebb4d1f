package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LadderMetrics holds the Prometheus collectors for ladder operations.
type LadderMetrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Promotions *prometheus.CounterVec
	TxRetries  *prometheus.CounterVec
	Published  *prometheus.CounterVec
}

// NewLadderMetrics creates the collectors and registers them with reg.
func NewLadderMetrics(reg prometheus.Registerer) *LadderMetrics {
	m := &LadderMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "operations_total",
			Help:      "Ladder operations by outcome (ok, or the rejection code).",
		}, []string{"operation", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ladder",
			Name:      "operation_duration_seconds",
			Help:      "Ladder operation latency including transaction retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		Promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "promotions_total",
			Help:      "Players promoted while crediting matches, by target tier.",
		}, []string{"tier"}),
		TxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "tx_retries_total",
			Help:      "Transactions retried after a serialization failure or deadlock.",
		}, []string{"operation"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ladder",
			Name:      "outbox_published_total",
			Help:      "Outbox events relayed to Kafka, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Operations, m.Duration, m.Promotions, m.TxRetries, m.Published)
	return m
}

// Observe records one finished operation.
func (m *LadderMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.Duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
