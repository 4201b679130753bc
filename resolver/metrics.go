package resolver

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts resolver activity. A nil *Metrics records nothing.
type Metrics struct {
	queries   *prometheus.CounterVec
	fallbacks prometheus.Counter
	anomalies *prometheus.CounterVec
}

// NewMetrics creates resolver metrics and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semweave",
			Subsystem: "resolver",
			Name:      "graph_queries_total",
			Help:      "Graph queries materialized, by query shape.",
		}, []string{"shape"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semweave",
			Subsystem: "resolver",
			Name:      "historical_fallbacks_total",
			Help:      "Bundles resolved through historical dependency resolution.",
		}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semweave",
			Subsystem: "resolver",
			Name:      "anomalies_total",
			Help:      "Recoverable data anomalies, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.fallbacks, m.anomalies)
	}
	return m
}

func (m *Metrics) query(shape string) {
	if m != nil {
		m.queries.WithLabelValues(shape).Inc()
	}
}

func (m *Metrics) fallback() {
	if m != nil {
		m.fallbacks.Inc()
	}
}

func (m *Metrics) anomaly(kind string) {
	if m != nil {
		m.anomalies.WithLabelValues(kind).Inc()
	}
}
