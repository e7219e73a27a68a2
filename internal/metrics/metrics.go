// Package metrics exposes the bridge's Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aquillum/LiteClaw/internal/channel"
)

const namespace = "bridge"

// Metrics owns a private registry so tests and multiple instances do not collide.
type Metrics struct {
	registry *prometheus.Registry
	inbound  *prometheus.CounterVec
	outbound *prometheus.CounterVec
	bots     *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by platform and outcome.",
		}, []string{"platform", "outcome"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Outbound send and typing requests by platform, operation and result.",
		}, []string{"platform", "op", "result"}),
		bots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_bots",
			Help:      "Bots registered per platform.",
		}, []string{"platform"}),
	}
	reg.MustRegister(
		m.inbound,
		m.outbound,
		m.bots,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveInbound implements channel.InboundObserver.
func (m *Metrics) ObserveInbound(platform channel.Platform, outcome string) {
	m.inbound.WithLabelValues(platform.String(), outcome).Inc()
}

// ObserveSend implements channel.SendObserver.
func (m *Metrics) ObserveSend(platform channel.Platform, op string, err error) {
	m.outbound.WithLabelValues(platform.String(), op, resultLabel(err)).Inc()
}

// SetBots records the number of registered bots for platform.
func (m *Metrics) SetBots(platform channel.Platform, n int) {
	m.bots.WithLabelValues(platform.String()).Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		validErr   *channel.ValidationError
		notInitErr *channel.NotInitializedError
	)
	switch {
	case errors.As(err, &validErr):
		return "invalid"
	case errors.As(err, &notInitErr):
		return "not_initialized"
	default:
		return "error"
	}
}
