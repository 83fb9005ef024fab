package suggest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts Suggest calls by outcome: ok, partial or failed.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_suggest_requests_total",
			Help: "Total number of suggestion requests",
		},
		[]string{"outcome"},
	)

	// FieldFailuresTotal counts completion fields that could not be queried.
	FieldFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_suggest_field_failures_total",
			Help: "Total number of failed completion suggester calls per field",
		},
		[]string{"field"},
	)
)
