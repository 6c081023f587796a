package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records ledger mutations and remote-store round trips.
type StoreMetrics struct {
	mutations *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New registers the metrics on the provided registerer. A nil registerer
// yields a no-op recorder.
func New(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "puerto_mutations_total",
		Help: "Domain mutations by collection, operation and outcome.",
	}, []string{"collection", "operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "puerto_remote_duration_seconds",
		Help:    "Remote store call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "operation"})
	reg.MustRegister(mutations, latency)
	return &StoreMetrics{mutations: mutations, latency: latency}
}

// Observe records one mutation attempt; err decides the outcome label.
func (m *StoreMetrics) Observe(collection, operation string, started time.Time, err error) {
	if m == nil || m.mutations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(normalizeLabel(collection), normalizeLabel(operation), outcome).Inc()
	m.latency.WithLabelValues(normalizeLabel(collection), normalizeLabel(operation)).Observe(time.Since(started).Seconds())
}

func normalizeLabel(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return strings.ToLower(trimmed)
	}
	return "unknown"
}
