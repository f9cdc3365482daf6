package workflow

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts review operations and outbox publishing. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	Decisions      *prometheus.CounterVec
	QueueProcessed *prometheus.CounterVec
	QueueSkipped   *prometheus.CounterVec
	Published      *prometheus.CounterVec
	OperationSec   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_decisions_total",
		Help: "Review decisions recorded, by outcome.",
	}, []string{"outcome"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_queue_processed_total",
		Help: "Update queue entries changed by batch operations.",
	}, []string{"op"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_queue_skipped_total",
		Help: "Update queue ids skipped by batch operations.",
	}, []string{"op"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_outbox_publish_total",
		Help: "Outbox publish attempts, by result.",
	}, []string{"result"})
	opSec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maestro_operation_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	r.MustRegister(decisions, processed, skipped, published, opSec)
	return &Metrics{
		reg:            r,
		Decisions:      decisions,
		QueueProcessed: processed,
		QueueSkipped:   skipped,
		Published:      published,
		OperationSec:   opSec,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) decided(outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) batch(op string, processed, skipped int) {
	if m == nil {
		return
	}
	m.QueueProcessed.WithLabelValues(op).Add(float64(processed))
	m.QueueSkipped.WithLabelValues(op).Add(float64(skipped))
}

func (m *Metrics) publish(result string) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(result).Inc()
}

func (m *Metrics) observe(op string, seconds float64) {
	if m == nil {
		return
	}
	m.OperationSec.WithLabelValues(op).Observe(seconds)
}
