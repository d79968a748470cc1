// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of jobs currently being handled per worker",
		},
		[]string{"task_type"},
	)

	SubmissionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_transitions_total",
			Help: "Committed category submission status changes",
		},
		[]string{"from", "to"},
	)

	TransactionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_transaction_conflicts_total",
			Help: "Optimistic concurrency conflicts that caused an operation retry",
		},
		[]string{"operation"},
	)

	GatewayPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_passes_total",
			Help: "Checklists that reached gateway passed",
		},
	)

	WorkQueueSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "work_queue_source_failures_total",
			Help: "Work queue sources that failed or timed out",
		},
		[]string{"source"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Notifications that could not be delivered",
		},
		[]string{"kind", "channel"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_cache_operations_total",
			Help: "Derived view cache lookups and invalidations",
		},
		[]string{"view", "result"},
	)
)
