// Package metrics exposes prometheus collectors for the gasless flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gasless"

// Metrics owns its registry so tests and multiple servers do not collide on
// the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	relayLatency *prometheus.HistogramVec
	submissions  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Gasless API requests by action and HTTP status.",
		}, []string{"action", "status"}),
		relayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_call_duration_seconds",
			Help:      "Latency of outbound relay calls by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Transaction submissions by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.relayLatency,
		m.submissions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Nil-safe so components can run without metrics in tests.

func (m *Metrics) ObserveRequest(action string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(action, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveRelayCall(method string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.relayLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
