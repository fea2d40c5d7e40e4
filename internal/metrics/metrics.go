// Package metrics exposes the Prometheus collectors of the storefront service.
// Every method is safe to call on a nil *Metrics so library users can opt out.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type Metrics struct {
	registry *prometheus.Registry

	cartMutations     *prometheus.CounterVec
	storageCorruption prometheus.Counter
	storageErrors     *prometheus.CounterVec
	checkoutAttempts  *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

// New builds the collectors on a private registry so tests can create as many
// instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation",
		}, []string{"op"}),
		storageCorruption: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "corrupted_entries_total",
			Help:      "Persisted entries dropped because they could not be decoded",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Storage backend failures by operation",
		}, []string{"op"}),
		checkoutAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by payment method and result",
		}, []string{"method", "result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Browser sessions currently held in memory",
		}),
	}

	m.registry.MustRegister(
		m.cartMutations,
		m.storageCorruption,
		m.storageErrors,
		m.checkoutAttempts,
		m.activeSessions,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) StorageCorruption() {
	if m == nil {
		return
	}
	m.storageCorruption.Inc()
}

func (m *Metrics) StorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) CheckoutAttempt(method, result string) {
	if m == nil {
		return
	}
	m.checkoutAttempts.WithLabelValues(method, result).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that gather values directly.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
