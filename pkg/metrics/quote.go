package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// QuoteMetrics records lifecycle transitions and autosave failures for the engine.
type QuoteMetrics struct {
	transitions      *prometheus.CounterVec
	autosaveFailures prometheus.Counter
}

// NewQuoteMetrics registers the engine metrics on the provided registerer.
func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		return &QuoteMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_transitions_total",
		Help: "Quote lifecycle transitions attempted, by outcome.",
	}, []string{"transition", "outcome"})
	autosaveFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quote_draft_autosave_failures_total",
		Help: "Draft autosave writes that failed.",
	})
	reg.MustRegister(transitions, autosaveFailures)
	return &QuoteMetrics{
		transitions:      transitions,
		autosaveFailures: autosaveFailures,
	}
}

// ObserveTransition counts one attempted transition.
func (m *QuoteMetrics) ObserveTransition(transition string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.transitions.WithLabelValues(normalizeLabel(transition), outcome).Inc()
}

// IncAutosaveFailure counts a failed draft write.
func (m *QuoteMetrics) IncAutosaveFailure() {
	if m == nil || m.autosaveFailures == nil {
		return
	}
	m.autosaveFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
