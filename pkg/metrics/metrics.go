// Package metrics provides Prometheus metrics for the import service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts finished imports by table, strategy and status
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tulip",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of imports by table, strategy and final status",
		},
		[]string{"tabel_naam", "strategy", "status"},
	)

	// ImportDuration tracks wall clock time of successful imports
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tulip",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Duration of imports in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"tabel_naam"},
	)

	// RecordsWritten counts rows inserted by import batches
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tulip",
			Subsystem: "import",
			Name:      "records_written_total",
			Help:      "Total number of records written by import batches",
		},
		[]string{"tabel_naam", "kind"},
	)

	// BatchDuration tracks the storage time of one batch
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tulip",
			Subsystem: "import",
			Name:      "batch_duration_seconds",
			Help:      "Duration of import batch writes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tabel_naam"},
	)

	// Changes counts reconciled record changes by kind
	Changes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tulip",
			Subsystem: "reconcile",
			Name:      "changes_total",
			Help:      "Total number of detected record changes",
		},
		[]string{"tabel_naam", "wijziging_type"},
	)

	// SkippedRows counts export rows dropped during parsing
	SkippedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tulip",
			Subsystem: "parse",
			Name:      "skipped_rows_total",
			Help:      "Total number of export rows skipped by reason",
		},
		[]string{"tabel_naam", "reason"},
	)

	// LockConflicts counts imports refused because one was already running
	LockConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tulip",
			Subsystem: "import",
			Name:      "lock_conflicts_total",
			Help:      "Total number of imports refused because the table was locked",
		},
		[]string{"tabel_naam"},
	)

	// SessionsSwept counts stale sessions closed by the sweeper
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tulip",
			Subsystem: "sweeper",
			Name:      "sessions_swept_total",
			Help:      "Total number of stale import sessions marked as error",
		},
	)

	// ActiveImports tracks open import sessions. Batch sessions can begin and
	// end on different instances, so only the sum over instances is exact.
	ActiveImports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tulip",
			Subsystem: "import",
			Name:      "active",
			Help:      "Number of imports currently in progress",
		},
	)
)
