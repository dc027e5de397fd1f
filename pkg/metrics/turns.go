package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TurnMetrics records conversation pipeline activity.
type TurnMetrics struct {
	duration      *prometheus.HistogramVec
	turns         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	confirmations prometheus.Counter
}

// NewTurnMetrics registers the turn metrics on the provided registerer.
func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	if reg == nil {
		return &TurnMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "turn_duration_seconds",
		Help:    "Duration of conversation turns in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})
	turns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turns_total",
		Help: "Processed conversation turns by resulting domain.",
	}, []string{"domain"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "turn_failures_total",
		Help: "Conversation turns that ended in an error.",
	}, []string{"domain"})
	confirmations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Orders confirmed through the conversation flow.",
	})
	reg.MustRegister(duration, turns, failures, confirmations)
	return &TurnMetrics{
		duration:      duration,
		turns:         turns,
		failures:      failures,
		confirmations: confirmations,
	}
}

// ObserveTurn records one processed turn in the named domain.
func (m *TurnMetrics) ObserveTurn(domain string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(domain)
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	m.turns.WithLabelValues(label).Inc()
}

// IncFailure increments the failure counter for the named domain.
func (m *TurnMetrics) IncFailure(domain string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(domain)).Inc()
}

// IncConfirmation counts one confirmed order.
func (m *TurnMetrics) IncConfirmation() {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.Inc()
}

func normalizeLabel(domain string) string {
	if domain == "" {
		return "unknown"
	}
	return domain
}
