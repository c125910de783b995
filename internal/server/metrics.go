package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covera_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "covera_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "covera_planner_questions_total",
		Help: "Planner questions by outcome kind; ok for answered.",
	}, []string{"outcome"})

	ingestedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covera_ingested_facilities_total",
		Help: "Facility records created or updated by ingestion.",
	})

	rejectedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covera_rejected_rows_total",
		Help: "Ingestion rows rejected with a row error.",
	})
)
