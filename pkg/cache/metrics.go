package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zen-systems/promptroute/pkg/route"
)

// Metrics counts cache events per route.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers the cache collectors with the given registerer.
// A nil registerer falls back to the prometheus default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptroute",
			Name:      "cache_events_total",
			Help:      "Cache lookups by route and outcome (hit, miss, expired).",
		}, []string{"route", "event"}),
	}
	reg.MustRegister(m.events)
	return m
}

func (m *Metrics) observe(r route.Route, event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(r.String(), event).Inc()
}
