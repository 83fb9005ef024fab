package elasticsearch

import (
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration observes the latency of engine calls by operation.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_engine_request_duration_seconds",
			Help:    "Duration of Elasticsearch requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RequestsTotal counts engine calls by operation and outcome. Outcome is
	// the HTTP status code, or "transport_error" when no response arrived.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_engine_requests_total",
			Help: "Total number of Elasticsearch requests",
		},
		[]string{"operation", "outcome"},
	)
)

func observe(op string, start time.Time, err error, res *esapi.Response) {
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "transport_error"
	if err == nil && res != nil {
		outcome = strconv.Itoa(res.StatusCode)
	}
	RequestsTotal.WithLabelValues(op, outcome).Inc()
}
