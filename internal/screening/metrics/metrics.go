package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening engine.
type Metrics struct {
	// Decision outcomes by status and block cause
	DecisionOutcome *prometheus.CounterVec

	// Decide latency including both checks
	DecideLatency prometheus.Histogram

	// Text classifications by path: "llm", "heuristic", "llm_fallback"
	Classifications *prometheus.CounterVec

	// LLM round-trip latency, successful or not
	LLMLatency prometheus.Histogram

	// Sanctions hits by kind: "country" or "name"
	SanctionsMatches *prometheus.CounterVec
}

// New creates and registers all screening metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geopulse_decision_outcomes_total",
			Help: "Total compliance decisions by status and block cause",
		}, []string{"status", "cause"}),

		DecideLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "geopulse_decision_duration_seconds",
			Help:    "Duration of a compliance decision",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geopulse_text_classifications_total",
			Help: "Total text classifications by path",
		}, []string{"path"}),

		LLMLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "geopulse_llm_duration_seconds",
			Help:    "Duration of external LLM calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),

		SanctionsMatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geopulse_sanctions_matches_total",
			Help: "Total sanctions hits by kind (country or name)",
		}, []string{"kind"}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(status, cause string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status, cause).Inc()
	}
}

// ObserveDecideLatency records the duration of one decision.
func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}

// IncrementClassification records which path produced a verdict.
func (m *Metrics) IncrementClassification(path string) {
	if m != nil {
		m.Classifications.WithLabelValues(path).Inc()
	}
}

// ObserveLLMLatency records an LLM round trip.
func (m *Metrics) ObserveLLMLatency(d time.Duration) {
	if m != nil {
		m.LLMLatency.Observe(d.Seconds())
	}
}

// IncrementSanctionsMatch records a sanctions hit.
func (m *Metrics) IncrementSanctionsMatch(kind string) {
	if m != nil {
		m.SanctionsMatches.WithLabelValues(kind).Inc()
	}
}
