package weaver

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts normalization outcomes. A nil *Metrics records nothing.
type Metrics struct {
	documents   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	annotations *prometheus.CounterVec
}

// NewMetrics creates weaver metrics and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semweave",
			Subsystem: "weaver",
			Name:      "documents_total",
			Help:      "Documents woven, by notation.",
		}, []string{"notation"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semweave",
			Subsystem: "weaver",
			Name:      "diagnostics_total",
			Help:      "Elements dropped or repaired, by diagnostic code.",
		}, []string{"code"}),
		annotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semweave",
			Subsystem: "weaver",
			Name:      "annotations_total",
			Help:      "Canonical annotations emitted, by relationship.",
		}, []string{"rel"}),
	}
	if reg != nil {
		reg.MustRegister(m.documents, m.dropped, m.annotations)
	}
	return m
}

func (m *Metrics) observe(res *Result) {
	if m == nil || res == nil {
		return
	}
	notation := string(res.Notation)
	if notation == "" {
		notation = "unknown"
	}
	m.documents.WithLabelValues(notation).Inc()
	for _, d := range res.Diagnostics {
		m.dropped.WithLabelValues(string(d.Code)).Inc()
	}
	for _, a := range res.Annotations {
		m.annotations.WithLabelValues(a.Rel.Tag()).Inc()
	}
}
