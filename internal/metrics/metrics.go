package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	userFailures  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	removals      *prometheus.CounterVec
	trackedUsers  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialbot",
			Name:      "job_runs_total",
			Help:      "Periodic job runs by job name.",
		}, []string{"job"}),
		userFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialbot",
			Name:      "job_user_failures_total",
			Help:      "Per-user failures inside periodic jobs.",
		}, []string{"job"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialbot",
			Name:      "notifications_total",
			Help:      "Notifications by reason and delivery result.",
		}, []string{"reason", "result"}),
		removals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialbot",
			Name:      "removals_total",
			Help:      "User removals by trigger.",
		}, []string{"trigger"}),
		trackedUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trialbot",
			Name:      "tracked_users",
			Help:      "Users seen by the last reconciliation sweep.",
		}),
	}
}

func (m *Metrics) JobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *Metrics) UserFailure(job string) {
	if m == nil {
		return
	}
	m.userFailures.WithLabelValues(job).Inc()
}

func (m *Metrics) Notification(reason string, delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.notifications.WithLabelValues(reason, result).Inc()
}

func (m *Metrics) Removal(trigger string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(trigger).Inc()
}

func (m *Metrics) TrackedUsers(n int) {
	if m == nil {
		return
	}
	m.trackedUsers.Set(float64(n))
}
