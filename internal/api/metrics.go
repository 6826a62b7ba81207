package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeError    = "error"
	outcomeNotFound = "not_found"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "optimizer_api_requests_total",
		Help: "Requests handled, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "optimizer_api_request_duration_seconds",
		Help:    "Time spent handling a request, including the optimizer call.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

var uploadRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "optimizer_api_upload_rows_total",
		Help: "Records forwarded to the optimizer upload endpoint.",
	},
	[]string{"data_type"},
)

func observe(op, outcome string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
