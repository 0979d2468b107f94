// Package metrics exposes Prometheus instrumentation for the investigation
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harrier_runs_started_total",
		Help: "Investigation runs started.",
	})

	RunsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harrier_runs_succeeded_total",
		Help: "Investigation runs that completed successfully.",
	})

	RunsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_runs_failed_total",
		Help: "Investigation runs that failed, by error kind.",
	}, []string{"kind"})

	StagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_stages_skipped_total",
		Help: "Best-effort stages skipped after a caught failure.",
	}, []string{"stage"})

	LedgerRowsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harrier_ledger_rows_fetched_total",
		Help: "Raw ledger rows fetched from the archive.",
	})

	LedgerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harrier_ledger_cache_hits_total",
		Help: "Ledger fetches served from the cache.",
	})

	LedgerCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harrier_ledger_cache_misses_total",
		Help: "Ledger fetches that went to the archive.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harrier_run_duration_seconds",
		Help:    "End-to-end investigation run duration.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)
