// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the gateway loop. Each Metrics value owns a
// private registry so that tests and multiple gateways do not collide.

package control

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Direction labels for forwarded bytes.
const (
	DirUpstream   = "upstream"   // client to backend
	DirDownstream = "downstream" // backend to clients
)

// Metrics holds every collector updated by the event loop.
type Metrics struct {
	registry *prometheus.Registry

	ClientsConnected  prometheus.Gauge
	ClientsAccepted   prometheus.Counter
	ClientsRejected   prometheus.Counter
	ClientsClosed     *prometheus.CounterVec
	BytesForwarded    *prometheus.CounterVec
	BackendReconnects prometheus.Counter
	BackendConnected  prometheus.Gauge
	TurnActive        prometheus.Gauge
	TurnTimeouts      prometheus.Counter
	DeferredClients   prometheus.Gauge
	DeferredPromoted  prometheus.Counter
	PacingWaits       prometheus.Counter
}

// NewMetrics creates and registers the gateway collectors, plus the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gate_clients_connected",
			Help: "Number of connected downstream clients",
		}),
		ClientsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_clients_accepted_total",
			Help: "Total number of clients admitted to a pool slot",
		}),
		ClientsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_clients_rejected_total",
			Help: "Total number of accepted sockets closed because the pool was full",
		}),
		ClientsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_clients_closed_total",
			Help: "Total number of client connections closed, by reason",
		}, []string{"reason"}),
		BytesForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_bytes_forwarded_total",
			Help: "Total bytes queued for forwarding, by direction",
		}, []string{"direction"}),
		BackendReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_backend_connects_total",
			Help: "Total number of established backend connections",
		}),
		BackendConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gate_backend_connected",
			Help: "1 while the backend connection is up",
		}),
		TurnActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gate_turn_active",
			Help: "1 while a client holds the backend turn",
		}),
		TurnTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_turn_timeouts_total",
			Help: "Total number of turns released by inactivity timeout",
		}),
		DeferredClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gate_deferred_clients",
			Help: "Number of clients waiting for a turn",
		}),
		DeferredPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_deferred_promotions_total",
			Help: "Total number of waiting clients granted a turn",
		}),
		PacingWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_pacing_waits_total",
			Help: "Total number of loop iterations delayed by command pacing",
		}),
	}
	m.registry.MustRegister(
		m.ClientsConnected, m.ClientsAccepted, m.ClientsRejected, m.ClientsClosed,
		m.BytesForwarded, m.BackendReconnects, m.BackendConnected, m.TurnActive,
		m.TurnTimeouts, m.DeferredClients, m.DeferredPromoted, m.PacingWaits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
