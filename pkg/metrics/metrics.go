package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ActivitiesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activities_discovered_total",
			Help: "Activities discovered on course listing pages.",
		},
	)

	QuestionsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_extracted_total",
			Help: "Question images classified on activity pages.",
		},
	)

	ImageDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_downloads_total",
			Help: "Question image download attempts.",
		},
		[]string{"status"}, // success, http_error, network_error, write_error
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_runs_total",
			Help: "Course extraction runs by outcome.",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_run_duration_seconds",
			Help:    "Duration of course extraction runs.",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 2400},
		},
	)
)
