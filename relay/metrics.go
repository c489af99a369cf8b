/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the relay's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	rooms     prometheus.Gauge
	clients   prometheus.Gauge
	frames    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	skips     prometheus.Counter
	forwarded prometheus.Counter
	timeouts  prometheus.Counter
	limited   prometheus.Counter
}

// NewMetrics creates the relay collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hideseek",
			Name:      "rooms",
			Help:      "Number of live rooms.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hideseek",
			Name:      "clients",
			Help:      "Number of connected clients.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hideseek",
			Name:      "frames_received_total",
			Help:      "Inbound frames by type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hideseek",
			Name:      "request_errors_total",
			Help:      "Rejected requests by error kind.",
		}, []string{"kind"}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hideseek",
			Name:      "deliveries_skipped_total",
			Help:      "Outbound frames dropped because the channel was not open.",
		}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hideseek",
			Name:      "frames_forwarded_total",
			Help:      "Opaque frames delivered to room members.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hideseek",
			Name:      "liveness_timeouts_total",
			Help:      "Connections closed for inactivity.",
		}),
		limited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hideseek",
			Name:      "frames_rate_limited_total",
			Help:      "Inbound frames dropped by the per-connection rate limit.",
		}),
	}

	reg.MustRegister(
		m.rooms,
		m.clients,
		m.frames,
		m.errors,
		m.skips,
		m.forwarded,
		m.timeouts,
		m.limited,
	)

	return m
}

func (m *Metrics) setRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

func (m *Metrics) setClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

func (m *Metrics) frame(label string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(label).Inc()
}

func (m *Metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

func (m *Metrics) skipped() {
	if m == nil {
		return
	}
	m.skips.Inc()
}

func (m *Metrics) forwardedFrame() {
	if m == nil {
		return
	}
	m.forwarded.Inc()
}

func (m *Metrics) timedOut() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *Metrics) rateLimited() {
	if m == nil {
		return
	}
	m.limited.Inc()
}
