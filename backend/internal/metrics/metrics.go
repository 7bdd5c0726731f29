package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for graph queries
const (
	OutcomeOK         = "ok"
	OutcomeConnection = "connection"
	OutcomeQuery      = "query"
)

// GraphMetrics instruments round trips to the graph store
type GraphMetrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewGraphMetrics registers the graph collectors on reg
func NewGraphMetrics(reg prometheus.Registerer) *GraphMetrics {
	factory := promauto.With(reg)
	return &GraphMetrics{
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_queries_total",
				Help: "Total number of graph store round trips",
			},
			[]string{"access_mode", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graph_query_duration_seconds",
				Help:    "Time spent in graph store round trips",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"access_mode"},
		),
	}
}

// ObserveQuery records one round trip. A nil receiver is a no-op.
func (m *GraphMetrics) ObserveQuery(accessMode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(accessMode, outcome).Inc()
	m.duration.WithLabelValues(accessMode).Observe(elapsed.Seconds())
}
