// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	purchases       *prometheus.CounterVec
	restocks        *prometheus.CounterVec
	cartMutations   *prometheus.CounterVec
	connectAttempts prometheus.Counter
	connectionState prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		restocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restocks_total",
			Help:      "Restock attempts by outcome.",
		}, []string{"outcome"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_connect_attempts_total",
			Help:      "Attempts made by the connection supervisor.",
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_connection_state",
			Help:      "0=disconnected 1=connecting 2=connected 3=shutting_down",
		}),
	}

	reg.MustRegister(m.purchases, m.restocks, m.cartMutations, m.connectAttempts, m.connectionState)
	return m
}

func (m *Metrics) Purchase(outcome string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Restock(outcome string) {
	if m == nil {
		return
	}
	m.restocks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CartMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

func (m *Metrics) ConnectionState(value int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(value))
}
