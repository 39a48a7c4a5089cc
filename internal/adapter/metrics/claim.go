package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Claim outcomes reported by the installation coordinator.
const (
	OutcomeFastPath        = "fast_path"
	OutcomeClaimed         = "claimed"
	OutcomeExhausted       = "exhausted"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeContended       = "contended"
	OutcomeStaleCleared    = "stale_cleared"
	OutcomeReleased        = "released"
	OutcomeUninstallFailed = "uninstall_failed"
)

// ClaimMetrics holds Prometheus metrics for installation claims.
// All methods are safe on a nil receiver.
type ClaimMetrics struct {
	Outcomes            *prometheus.CounterVec
	ConflictRetries     prometheus.Counter
	EnumerationDuration prometheus.Histogram
}

func NewClaimMetrics(reg prometheus.Registerer) *ClaimMetrics {
	m := &ClaimMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "outcomes_total",
			Help:      "Installation resolve/claim/release outcomes, by outcome.",
		}, []string{"outcome"}),
		ConflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "conflict_retries_total",
			Help:      "Conditional binds rejected by the uniqueness constraint and retried on the next candidate.",
		}),
		EnumerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "enumeration_duration_seconds",
			Help:      "Duration of installation registry enumeration.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	reg.MustRegister(m.Outcomes, m.ConflictRetries, m.EnumerationDuration)
	return m
}

func (m *ClaimMetrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *ClaimMetrics) ConflictRetry() {
	if m == nil {
		return
	}
	m.ConflictRetries.Inc()
}

func (m *ClaimMetrics) ObserveEnumeration(d time.Duration) {
	if m == nil {
		return
	}
	m.EnumerationDuration.Observe(d.Seconds())
}
