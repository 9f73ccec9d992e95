// Package metrics owns the process Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles every collector the assistant exports.
type Set struct {
	registry *prometheus.Registry

	Turns         prometheus.Counter
	Routes        *prometheus.CounterVec
	Activations   *prometheus.CounterVec
	OverdueOrders prometheus.Gauge
}

func New() *Set {
	s := &Set{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "murmur_turns_total",
			Help: "Utterances dispatched end to end.",
		}),
		Routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "murmur_dispatch_route_total",
			Help: "Dispatch decisions by route taken.",
		}, []string{"route"}),
		Activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "murmur_skill_activations_total",
			Help: "Non-error results emitted, by skill uid.",
		}, []string{"skill"}),
		OverdueOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "murmur_overdue_orders",
			Help: "Rack entries past their pick-by time, from the last sweep.",
		}),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		s.Turns, s.Routes, s.Activations, s.OverdueOrders,
	)
	return s
}

// Handler serves the registry for a /metrics endpoint.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
