// Package metrics counts auth outcomes for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OK         = "ok"
	Invalid    = "invalid"
	Conflict   = "conflict"
	BadCreds   = "bad_credentials"
	StoreError = "store_error"
	Throttled  = "throttled"
)

type Metrics struct {
	Registry *prometheus.Registry
	Attempts *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wayfarer",
			Name:      "auth_attempts_total",
			Help:      "Login and registration attempts by outcome.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(m.Attempts)
	return m
}

// Observe is safe on a nil receiver so handlers can run without metrics.
func (m *Metrics) Observe(action, outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
