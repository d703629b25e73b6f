package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics counts loan and return transitions plus post-commit sink
// failures.
type LendingMetrics struct {
	transitions  *prometheus.CounterVec
	sinkFailures *prometheus.CounterVec
}

func NewLendingMetrics(reg prometheus.Registerer) *LendingMetrics {
	if reg == nil {
		return &LendingMetrics{}
	}
	m := &LendingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Loan and return operations by outcome (ok or the rejecting error code).",
		}, []string{"operation", "outcome"}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Notification, audit and publish failures after commit.",
		}, []string{"sink"}),
	}
	reg.MustRegister(m.transitions, m.sinkFailures)
	return m
}

// ObserveTransition records one operation attempt. outcome is "ok" or an error code.
func (m *LendingMetrics) ObserveTransition(operation, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *LendingMetrics) IncSinkFailure(sink string) {
	if m == nil || m.sinkFailures == nil {
		return
	}
	m.sinkFailures.WithLabelValues(normalizeLabel(sink)).Inc()
}
