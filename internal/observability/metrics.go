package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_hub_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "candidate_hub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_hub_rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"rule"},
	)

	RetryDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_hub_retry_dispatched_total",
			Help: "Candidate retries handed to the analysis worker",
		},
	)

	RetryDispatchFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_hub_retry_dispatch_failed_total",
			Help: "Candidate retries that failed before or during dispatch",
		},
	)

	RetryCompensated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_hub_retry_compensated_total",
			Help: "Retries whose job and candidate were marked failed after a worker error",
		},
	)

	WorkerEnqueueFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_hub_worker_enqueue_failed_total",
			Help: "Queue enqueue calls that failed; jobs stay queued for polling pickup",
		},
	)
)
