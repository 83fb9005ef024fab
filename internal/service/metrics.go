package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reindexRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_reindex_runs_total",
			Help: "Total number of reindex runs by outcome: promoted, empty, partial, failed or rejected",
		},
		[]string{"outcome"},
	)

	reindexDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_reindex_duration_seconds",
			Help:    "Wall time of reindex runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	reindexInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_reindex_in_progress",
			Help: "1 while a reindex run holds the lifecycle",
		},
	)
)
