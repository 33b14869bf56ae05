// Package metrics exposes server counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "miniredis"

// Metrics groups the collectors updated by the connection handler. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Connections    prometheus.Gauge
	Accepted       prometheus.Counter
	Commands       *prometheus.CounterVec // by command name
	Replies        *prometheus.CounterVec // by kind: ok or error
	ProtocolErrors prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open client connections.",
		}),
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Client connections accepted since start.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed, by name.",
		}, []string{"command"}),
		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies written, by kind.",
		}, []string{"kind"}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Connections closed because of malformed framing.",
		}),
	}
	reg.MustRegister(m.Connections, m.Accepted, m.Commands, m.Replies, m.ProtocolErrors)
	return m
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.Accepted.Inc()
	m.Connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(name).Inc()
}

func (m *Metrics) Reply(isError bool) {
	if m == nil {
		return
	}
	kind := "ok"
	if isError {
		kind = "error"
	}
	m.Replies.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.ProtocolErrors.Inc()
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
