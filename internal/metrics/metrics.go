// Package metrics holds the Prometheus collectors for chat, dialogue and journal activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ChatTurns        prometheus.Counter
	ChatRejected     *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	DialogueCalls    *prometheus.CounterVec
	DialogueDuration prometheus.Histogram
	MoodEntries      prometheus.Counter
	CrisisSignals    prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ChatTurns: factory.NewCounter(prometheus.CounterOpts{
			Name: "xinling_chat_turns_total",
			Help: "Total number of accepted chat turns",
		}),

		// reason: empty, in_flight
		ChatRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xinling_chat_rejected_total",
			Help: "Chat sends rejected before reaching the dialogue backend",
		}, []string{"reason"}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "xinling_chat_sessions_active",
			Help: "Number of chat sessions held in memory",
		}),

		// outcome: ok, missing_key, invalid_key, empty, unavailable
		DialogueCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xinling_dialogue_calls_total",
			Help: "Remote dialogue calls by kind and outcome",
		}, []string{"kind", "outcome"}),

		DialogueDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "xinling_dialogue_duration_seconds",
			Help:    "Remote dialogue latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		MoodEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "xinling_mood_entries_total",
			Help: "Total number of recorded mood entries",
		}),

		CrisisSignals: factory.NewCounter(prometheus.CounterOpts{
			Name: "xinling_crisis_signals_total",
			Help: "User turns flagged by local crisis screening",
		}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordTurn() {
	if m != nil {
		m.ChatTurns.Inc()
	}
}

func (m *Metrics) RecordRejected(reason string) {
	if m != nil {
		m.ChatRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SetActiveSessions(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}

func (m *Metrics) RecordDialogue(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DialogueCalls.WithLabelValues(kind, outcome).Inc()
	m.DialogueDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordMoodEntry() {
	if m != nil {
		m.MoodEntries.Inc()
	}
}

func (m *Metrics) RecordCrisis() {
	if m != nil {
		m.CrisisSignals.Inc()
	}
}
