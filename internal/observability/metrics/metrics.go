// Package metrics exposes prometheus collectors for the composer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ComposerMetrics exposes counters for wizard sessions and submissions.
type ComposerMetrics struct {
	sessionsStarted    prometheus.Counter
	stepTransitions    *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	validationFailures prometheus.Counter
}

func NewComposerMetrics(reg prometheus.Registerer) *ComposerMetrics {
	m := &ComposerMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowline",
			Subsystem: "composer",
			Name:      "sessions_started_total",
			Help:      "Total wizard sessions created",
		}),
		stepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowline",
			Subsystem: "composer",
			Name:      "step_transitions_total",
			Help:      "Total step transitions by direction",
		}, []string{"direction"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowline",
			Subsystem: "composer",
			Name:      "submissions_total",
			Help:      "Total workflow submissions by outcome",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowline",
			Subsystem: "composer",
			Name:      "validation_failures_total",
			Help:      "Total submissions rejected by pre-submit validation",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.stepTransitions, m.submissionsTotal, m.validationFailures)
	return m
}

func (m *ComposerMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// ObserveStepTransition records a step move: "next", "previous", or "goto".
func (m *ComposerMetrics) ObserveStepTransition(direction string) {
	if m == nil {
		return
	}
	m.stepTransitions.WithLabelValues(direction).Inc()
}

// ObserveSubmission records a submit outcome: "persisted", "fallback", or "error".
func (m *ComposerMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *ComposerMetrics) ObserveValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}
