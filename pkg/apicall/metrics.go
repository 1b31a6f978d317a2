package apicall

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts executed calls by method and status.
	// status is the HTTP status code, or "error" when no response was received.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicall_requests_total",
			Help: "Total number of API calls by method and status",
		},
		[]string{"method", "status"},
	)

	// RequestDuration tracks transport time per call.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apicall_request_duration_seconds",
			Help:    "API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
