// Package metrics holds docket's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// TasksEnqueued counts tasks written to the queue
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_tasks_enqueued_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"kind"},
	)

	// TasksPoisoned counts undecodable records deleted on detection
	TasksPoisoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_tasks_poisoned_total",
			Help: "Total number of poisoned task records deleted",
		},
		[]string{"kind"},
	)

	// TasksMerged counts records folded into a seed task
	TasksMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_tasks_merged_total",
			Help: "Total number of task records merged into a dequeued task",
		},
		[]string{"kind"},
	)

	// TasksDeleted counts removed records by path (consumed, index_teardown)
	TasksDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_tasks_deleted_total",
			Help: "Total number of task records deleted",
		},
		[]string{"path"},
	)

	// WriteConflicts counts write conflicts observed by operation
	WriteConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_write_conflicts_total",
			Help: "Total number of write conflicts observed",
		},
		[]string{"op"},
	)

	// DrainCycleDuration measures one dequeue-apply-delete cycle
	DrainCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docket_drain_cycle_duration_seconds",
			Help:    "Duration of a drain cycle for one task kind",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"kind", "status"},
	)

	// AppliedKeys counts keys processed by the applier
	AppliedKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_applied_keys_total",
			Help: "Total number of task keys applied by the index-maintenance applier",
		},
		[]string{"kind"},
	)

	storageReadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docket_storage_read_bytes",
			Help:    "Size of point reads from storage",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	storageWriteBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docket_storage_write_bytes",
			Help:    "Size of point writes to storage",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	storageCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docket_storage_commit_duration_seconds",
			Help:    "Batch commit latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		},
	)

	storageCommitOps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docket_storage_commit_ops_total",
			Help: "Total number of operations committed in batches",
		},
	)
)

// StorageHook implements pebblestore.MetricsHook on top of the collectors.
type StorageHook struct{}

func (StorageHook) ObserveWrite(_ time.Duration, bytes int) {
	storageWriteBytes.Observe(float64(bytes))
}

func (StorageHook) ObserveRead(_ time.Duration, bytes int) {
	storageReadBytes.Observe(float64(bytes))
}

func (StorageHook) ObserveBatchCommit(elapsed time.Duration, numOps int, _ int) {
	storageCommitDuration.Observe(elapsed.Seconds())
	storageCommitOps.Add(float64(numOps))
}
