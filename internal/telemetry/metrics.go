package telemetry

import "github.com/prometheus/client_golang/prometheus"

// HTTPRequestDuration records request latency by method/route/status.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "controlplane",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// JobsSubmittedTotal counts scheduler job submissions by kind (train/deploy).
var JobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "jobs",
		Name:      "submitted_total",
		Help:      "Total cluster jobs submitted to the scheduler.",
	},
	[]string{"kind"},
)

// StatusTransitionsTotal counts reconciler-driven status transitions.
var StatusTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "reconciler",
		Name:      "status_transitions_total",
		Help:      "Model status transitions applied by the reconciler.",
	},
	[]string{"field", "from", "to"},
)

// ForcedFailuresTotal counts transitions the reconciler forced to failed.
var ForcedFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "reconciler",
		Name:      "forced_failures_total",
		Help:      "Jobs the reconciler forced into a failed state.",
	},
	[]string{"field"},
)

// CacheQueriesTotal counts semantic cache queries by outcome (hit/miss).
var CacheQueriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "cache",
		Name:      "queries_total",
		Help:      "Semantic cache queries by outcome.",
	},
	[]string{"outcome"},
)

// UpdateLogRecordsAppliedTotal counts update-log records applied by the writer.
var UpdateLogRecordsAppliedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "updatelog",
		Name:      "records_applied_total",
		Help:      "Update log records applied to a model snapshot.",
	},
	[]string{"kind"},
)

// UpdateLogPoisonedTotal counts records moved to a .poison file.
var UpdateLogPoisonedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "updatelog",
		Name:      "poisoned_total",
		Help:      "Update log records moved to .poison after repeated failures.",
	},
)

// AutoIdleShutdownsTotal counts deployment workers that self-terminated.
var AutoIdleShutdownsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "controlplane",
		Subsystem: "deployworker",
		Name:      "auto_idle_shutdowns_total",
		Help:      "Deployment workers that shut themselves down after the idle window (they report stopped to the control plane; no scheduler DeleteJob call is made).",
	},
)

// All returns every control-plane-specific metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		JobsSubmittedTotal,
		StatusTransitionsTotal,
		ForcedFailuresTotal,
		CacheQueriesTotal,
		UpdateLogRecordsAppliedTotal,
		UpdateLogPoisonedTotal,
		AutoIdleShutdownsTotal,
	}
}
