// Package monitoring exposes Prometheus metrics for the emulator service.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Emulator metrics
	SessionsActive      prometheus.Gauge
	SessionsStarted     prometheus.Counter
	StepsTotal          *prometheus.CounterVec
	HealthFailuresTotal prometheus.Counter
	RecoveriesTotal     prometheus.Counter
	SavesTotal          prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics registers and returns the service collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emulator_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emulator_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "emulator_sessions_active",
				Help: "Number of active emulator sessions",
			},
		),
		SessionsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "emulator_sessions_started_total",
				Help: "Total number of emulator sessions started",
			},
		),
		StepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emulator_steps_total",
				Help: "Total number of emulation steps executed",
			},
			[]string{"outcome"}, // ok | recovered
		),
		HealthFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "emulator_health_failures_total",
				Help: "Total number of failed health evaluations",
			},
		),
		RecoveriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "emulator_recoveries_total",
				Help: "Total number of snapshot rollbacks",
			},
		),
		SavesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "emulator_save_states_total",
				Help: "Total number of save-state writes",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "emulator_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.trackUptime()
	return m
}

// RecordStep increments the step counter for the given outcome. A recovered
// step implies a failed health evaluation preceded it.
func (m *Metrics) RecordStep(recovered bool) {
	outcome := "ok"
	if recovered {
		outcome = "recovered"
		m.HealthFailuresTotal.Inc()
		m.RecoveriesTotal.Inc()
	}
	m.StepsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}
