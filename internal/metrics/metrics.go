package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics holds every collector the storefront exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	CartMutations     *prometheus.CounterVec
	OrdersCreated     *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	OutboxPublished   prometheus.Counter
	OutboxFailures    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation.",
		}, []string{"op"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created by currency.",
		}, []string{"currency"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Order status transitions.",
		}, []string{"from", "to"}),
		OutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events written to Kafka.",
		}),
		OutboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failures_total",
			Help:      "Outbox events that failed to publish.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.CartMutations, m.OrdersCreated,
		m.StatusTransitions, m.OutboxPublished, m.OutboxFailures)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, ms float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	m.LatencyMS.WithLabelValues(method, route).Observe(ms)
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) OrderCreated(currency string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(currency).Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) OutboxResult(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.OutboxFailures.Inc()
		return
	}
	m.OutboxPublished.Inc()
}
