package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	oauthEvents *prometheus.CounterVec
}

// NewMetrics creates a Metrics with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentdrugs",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
		oauthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentdrugs",
			Name:      "oauth_events_total",
			Help:      "Authorization server operations by outcome (ok or OAuth error code).",
		}, []string{"operation", "outcome"}),
	}
	m.registry.MustRegister(m.requests, m.oauthEvents)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument counts requests served by next under the route label.
func (m *Metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		}
		next.ServeHTTP(rw, r)
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
	})
}

// observeOAuth records the outcome of an authorization server operation.
func (m *Metrics) observeOAuth(operation, outcome string) {
	m.oauthEvents.WithLabelValues(operation, outcome).Inc()
}
