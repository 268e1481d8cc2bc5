package mux

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains Prometheus instrumentation for the multiplexer.
type Metrics struct {
	Resolutions       *prometheus.CounterVec
	LoadFailures      *prometheus.CounterVec
	SessionsStarted   prometheus.Counter
	ActiveSubscribers prometheus.Gauge
}

// NewMetrics creates and registers multiplexer metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookmux_resolutions_total",
				Help: "Total number of hook resolution passes by hook",
			},
			[]string{"hook"},
		),
		LoadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookmux_extension_load_failures_total",
				Help: "Total number of extension load failures by hook",
			},
			[]string{"hook"},
		),
		SessionsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hookmux_watch_sessions_total",
				Help: "Total number of package watch sessions established",
			},
		),
		ActiveSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hookmux_active_subscribers",
				Help: "Number of currently attached stream subscribers",
			},
		),
	}

	reg.MustRegister(m.Resolutions)
	reg.MustRegister(m.LoadFailures)
	reg.MustRegister(m.SessionsStarted)
	reg.MustRegister(m.ActiveSubscribers)

	return m
}
