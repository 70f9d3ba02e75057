// Package metrics exposes prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's prometheus collectors. A nil *Metrics is a
// no-op so instrumentation can be disabled in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	escrowPayments *prometheus.CounterVec
	domainEvents   *prometheus.CounterVec
}

// New builds a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sokoni",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sokoni",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		escrowPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sokoni",
			Subsystem: "escrow",
			Name:      "payments_total",
			Help:      "Simulated escrow payment attempts by method and outcome.",
		}, []string{"payment_method", "outcome"}),
		domainEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sokoni",
			Subsystem: "market",
			Name:      "events_total",
			Help:      "Marketplace domain events by kind.",
		}, []string{"kind"}),
	}
	registry.MustRegister(m.httpRequests, m.httpDuration, m.escrowPayments, m.domainEvents)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveEscrowPayment records one simulated payment attempt.
func (m *Metrics) ObserveEscrowPayment(paymentMethod string, ok bool) {
	if m == nil {
		return
	}
	outcome := "locked"
	if !ok {
		outcome = "failed"
	}
	m.escrowPayments.WithLabelValues(paymentMethod, outcome).Inc()
}

// ObserveEvent records one marketplace domain event, e.g. request_created,
// bid_placed, bid_accepted, escrow_released.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.domainEvents.WithLabelValues(kind).Inc()
}
