package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed counts records successfully enriched and routed.
	RecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagger_records_processed_total",
			Help: "Total number of records successfully enriched",
		},
	)

	// RecordsFailed counts records routed to the failure destination.
	RecordsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_records_failed_total",
			Help: "Total number of records routed to the failure destination",
		},
		[]string{"kind"},
	)

	// RecordsDeleted counts records acknowledged on the source queue.
	RecordsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagger_records_deleted_total",
			Help: "Total number of records deleted from the source queue",
		},
	)

	// BatchesTotal counts batches drained per invocation loop.
	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagger_batches_total",
			Help: "Total number of batches drained",
		},
	)

	// InvocationDuration tracks wall-clock time per invocation.
	InvocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tagger_invocation_duration_seconds",
			Help:    "Invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AugmentationCalls counts text-generation calls by outcome.
	AugmentationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_augmentation_calls_total",
			Help: "Total number of augmentation calls",
		},
		[]string{"outcome"},
	)

	// AugmentationRetries counts rate-limit retries.
	AugmentationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagger_augmentation_retries_total",
			Help: "Total number of augmentation retries after rate limiting",
		},
	)
)
