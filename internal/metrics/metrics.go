// Package metrics holds the Prometheus collectors for assistdesk.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
)

// Metrics is a private registry with the assistdesk collectors.
type Metrics struct {
	registry *prometheus.Registry

	RemoteRequests        *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec
	CallSessionActive     prometheus.Gauge
	CallSessions          *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RemoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistdesk_remote_requests_total",
			Help: "Platform API requests by resource, method and outcome.",
		}, []string{"resource", "method", "outcome"}),
		RemoteRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistdesk_remote_request_duration_seconds",
			Help:    "Platform API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "method"}),
		CallSessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assistdesk_call_session_active",
			Help: "1 while a call session process is running.",
		}),
		CallSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistdesk_call_sessions_total",
			Help: "Finished call sessions by final status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.RemoteRequests,
		m.RemoteRequestDuration,
		m.CallSessionActive,
		m.CallSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one platform request. It matches vapi.WithObserver.
func (m *Metrics) ObserveRequest(info vapi.RequestInfo) {
	m.RemoteRequests.WithLabelValues(info.Resource, info.Method, info.Outcome).Inc()
	m.RemoteRequestDuration.WithLabelValues(info.Resource, info.Method).Observe(info.Duration.Seconds())
}

// CallStarted marks a session as running.
func (m *Metrics) CallStarted() {
	m.CallSessionActive.Set(1)
}

// CallFinished marks the session as finished with status.
func (m *Metrics) CallFinished(status string) {
	m.CallSessionActive.Set(0)
	m.CallSessions.WithLabelValues(status).Inc()
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
