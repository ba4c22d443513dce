package view

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
)

// Metrics counts renders and swallowed directive failures.
type Metrics struct {
	renders  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the view collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larafront",
			Subsystem: "view",
			Name:      "renders_total",
			Help:      "Named template renders by result.",
		}, []string{"result"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larafront",
			Subsystem: "view",
			Name:      "directive_failures_total",
			Help:      "Directive blocks that degraded to an empty string.",
		}, []string{"directive"}),
	}
}

func (m *Metrics) rendered(result string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(result).Inc()
}

func (m *Metrics) failed(directive string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(directive).Inc()
}
