package feedback

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zen-systems/promptroute/pkg/route"
)

// Metrics exposes routing outcome counters and handler latency.
type Metrics struct {
	outcomes  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewMetrics registers the feedback collectors with the given registerer.
// A nil registerer falls back to the prometheus default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptroute",
			Name:      "dispatch_outcomes_total",
			Help:      "Dispatched requests by route and success.",
		}, []string{"route", "success"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptroute",
			Name:      "handler_duration_seconds",
			Help:      "Wall-clock duration of handler calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"route"}),
	}
	reg.MustRegister(m.outcomes, m.durations)
	return m
}

// Observe records one dispatch outcome.
func (m *Metrics) Observe(rt route.Route, success bool, durationMs int64) {
	m.outcomes.WithLabelValues(rt.String(), strconv.FormatBool(success)).Inc()
	m.durations.WithLabelValues(rt.String()).Observe(float64(durationMs) / 1000)
}
