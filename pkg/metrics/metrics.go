package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Records seen by a backfill run, by mode and outcome
	// (updated, skipped, error).
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_records_processed_total",
			Help: "Records processed by backfill runs",
		},
		[]string{"mode", "outcome"},
	)

	// Category assignments flushed successfully, by category.
	CategoriesAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_categories_assigned_total",
			Help: "Category assignments written by classify runs",
		},
		[]string{"category"},
	)

	// Batch flush latency in classify mode.
	BatchFlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backfill_batch_flush_duration_seconds",
			Help:    "Duration of category update batch flushes",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"status"},
	)

	// Tag suggestion call latency.
	SuggestCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backfill_suggest_call_duration_seconds",
			Help:    "Duration of tag suggestion calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)
)

// IncrementRecordsProcessed counts one record outcome for a run mode.
func IncrementRecordsProcessed(mode, outcome string) {
	RecordsProcessed.WithLabelValues(mode, outcome).Inc()
}

// IncrementCategoryAssigned counts one flushed category assignment.
func IncrementCategoryAssigned(category string) {
	CategoriesAssigned.WithLabelValues(category).Inc()
}

// RecordBatchFlush records the latency of one batch flush.
func RecordBatchFlush(status string, duration time.Duration) {
	BatchFlushDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSuggestCall records the latency of one tag suggestion call.
func RecordSuggestCall(status string, duration time.Duration) {
	SuggestCallDuration.WithLabelValues(status).Observe(duration.Seconds())
}
