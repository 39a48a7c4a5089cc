package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics holds Prometheus metrics for the notification ledger.
type NotificationMetrics struct {
	Appended   *prometheus.CounterVec
	MarkedRead *prometheus.CounterVec
	MarkFailed prometheus.Counter
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		Appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "appended_total",
			Help:      "Notifications appended, by type.",
		}, []string{"type"}),
		MarkedRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "marked_read_total",
			Help:      "Notifications transitioned to read, by operation.",
		}, []string{"operation"}),
		MarkFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "mark_failures_total",
			Help:      "Per-item failures skipped during bulk mark-read.",
		}),
	}

	reg.MustRegister(m.Appended, m.MarkedRead, m.MarkFailed)
	return m
}

func (m *NotificationMetrics) RecordAppend(notificationType string) {
	if m == nil {
		return
	}
	m.Appended.WithLabelValues(notificationType).Inc()
}

func (m *NotificationMetrics) RecordMarked(operation string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.MarkedRead.WithLabelValues(operation).Add(float64(n))
}

func (m *NotificationMetrics) RecordMarkFailure() {
	if m == nil {
		return
	}
	m.MarkFailed.Inc()
}
