package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors. HTTP traffic is instrumented separately by the
// middleware package; these cover the background jobs and outbound calls.
var (
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cptrainer_job_runs_total",
			Help: "Scheduled job executions by job name and status (ok|error|panic).",
		},
		[]string{"job", "status"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "cptrainer_job_duration_seconds",
			Help: "Duration of scheduled job executions in seconds.",
			// Rotation makes one round trip per user; allow for minutes.
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cptrainer_upstream_calls_total",
			Help: "Catalog API calls by method and outcome (ok|failed|unavailable).",
		},
		[]string{"method", "outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cptrainer_notifications_total",
			Help: "Outbound chat notifications by kind (assignment|reminder) and outcome (ok|error).",
		},
		[]string{"kind", "outcome"},
	)

	streakUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cptrainer_streak_updates_total",
			Help: "Reconciliation outcomes per user (incremented|reset|skipped).",
		},
		[]string{"outcome"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cptrainer_verifications_total",
			Help: "Handle verification attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(jobRuns, jobDuration, upstreamCalls, notifications, streakUpdates, verifications)
}

// ObserveJob records one job execution.
func ObserveJob(job, status string, took time.Duration) {
	jobRuns.WithLabelValues(job, status).Inc()
	jobDuration.WithLabelValues(job).Observe(took.Seconds())
}

// ObserveUpstream records one catalog API call.
func ObserveUpstream(method, outcome string) {
	upstreamCalls.WithLabelValues(method, outcome).Inc()
}

// ObserveNotification records one delivery attempt.
func ObserveNotification(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	notifications.WithLabelValues(kind, outcome).Inc()
}

// ObserveStreak records a reconciliation outcome for one user.
func ObserveStreak(outcome string) {
	streakUpdates.WithLabelValues(outcome).Inc()
}

// ObserveVerification records a verification outcome
// (started|verified|expired|not_found|pending|duplicate|error).
func ObserveVerification(outcome string) {
	verifications.WithLabelValues(outcome).Inc()
}
