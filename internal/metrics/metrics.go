// Package metrics exposes prometheus instrumentation for the funnel engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors, registered on a private
// registry so multiple engines can coexist in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted  prometheus.Counter
	ActiveSessions   prometheus.Gauge
	IntentsTotal     *prometheus.CounterVec
	IntentsDropped   prometheus.Counter
	CompletionsFired prometheus.Counter
	NotifyFailures   prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_sessions_started_total",
			Help: "Number of funnel sessions created.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "funnel_active_sessions",
			Help: "Number of sessions currently held in memory.",
		}),
		IntentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_intents_total",
			Help: "Navigation intents received, by intent type.",
		}, []string{"intent"}),
		IntentsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_intents_dropped_total",
			Help: "Navigation intents dropped because a transition was in flight.",
		}),
		CompletionsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_completions_fired_total",
			Help: "One-shot completion triggers fired.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_notify_failures_total",
			Help: "Completion notification dispatch failures (logged, never retried).",
		}),
	}

	m.registry.MustRegister(
		m.SessionsStarted,
		m.ActiveSessions,
		m.IntentsTotal,
		m.IntentsDropped,
		m.CompletionsFired,
		m.NotifyFailures,
	)
	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
