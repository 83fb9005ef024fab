package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal counts InsertDocument calls by outcome: accepted,
	// invalid, failed or rejected (not initialized).
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_index_documents_total",
			Help: "Total number of documents offered to the standby index",
		},
		[]string{"outcome"},
	)

	// CommitsTotal counts Commit calls by outcome: promoted, partial,
	// skipped or failed.
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_index_commits_total",
			Help: "Total number of index commit attempts",
		},
		[]string{"outcome"},
	)
)
