// Package metrics provides Prometheus metrics for the control plane.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the control plane.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	TransitionsTotal     *prometheus.CounterVec
	ActiveProjects       prometheus.Gauge
	ReadinessWaitSeconds *prometheus.HistogramVec
	CloneAttemptsTotal   *prometheus.CounterVec
	ErrorsTotal          *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "controlplane_requests_total",
				Help: "Total number of control API requests by route and status.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "controlplane_request_duration_seconds",
				Help:    "Control API request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "controlplane_project_transitions_total",
				Help: "Total project lifecycle transitions by operation and result.",
			},
			[]string{"operation", "result"},
		),
		ActiveProjects: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "controlplane_active_projects",
				Help: "Number of projects currently in the active state.",
			},
		),
		ReadinessWaitSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "controlplane_readiness_wait_seconds",
				Help:    "Time spent waiting for a project's pod to become ready.",
				Buckets: []float64{1, 3, 10, 30, 60, 90, 120},
			},
			[]string{"result"},
		),
		CloneAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "controlplane_clone_attempts_total",
				Help: "Total in-pod repository clone attempts by result.",
			},
			[]string{"result"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "controlplane_errors_total",
				Help: "Total errors by module and kind.",
			},
			[]string{"module", "kind"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.ActiveProjects)
	reg.MustRegister(m.ReadinessWaitSeconds)
	reg.MustRegister(m.CloneAttemptsTotal)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, kind string) {
	m.ErrorsTotal.WithLabelValues(module, kind).Inc()
}

// RecordTransition increments the transition counter.
func (m *Metrics) RecordTransition(operation, result string) {
	m.TransitionsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveDuration records request duration.
func (m *Metrics) ObserveDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveReadinessWait records how long a readiness wait took.
func (m *Metrics) ObserveReadinessWait(result string, seconds float64) {
	m.ReadinessWaitSeconds.WithLabelValues(result).Observe(seconds)
}

// RecordCloneAttempt increments the clone attempt counter.
func (m *Metrics) RecordCloneAttempt(result string) {
	m.CloneAttemptsTotal.WithLabelValues(result).Inc()
}

// SetActiveProjects sets the active-project gauge.
func (m *Metrics) SetActiveProjects(count float64) {
	m.ActiveProjects.Set(count)
}
