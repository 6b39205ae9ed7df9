// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModerationActions counts moderation operations by action and outcome.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_moderation_actions_total",
		Help: "Total moderation actions by action and outcome",
	}, []string{"action", "outcome"})

	// SideEffectFailures counts best-effort side effects that failed.
	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_side_effect_failures_total",
		Help: "Total failed notification side effects by effect",
	}, []string{"effect"})

	// ChangeFeedEvents counts user updates received from the change feed.
	ChangeFeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_change_feed_events_total",
		Help: "Total change feed events by result",
	}, []string{"result"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warden_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ConsoleSessions is the gauge of open admin websocket sessions.
	ConsoleSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_console_sessions",
		Help: "Number of open admin console sessions",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordAction increments the moderation counter for action with an ok/error outcome.
func RecordAction(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ModerationActions.WithLabelValues(action, outcome).Inc()
}
