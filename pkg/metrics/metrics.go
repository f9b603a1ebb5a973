package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SweepsTotal         *prometheus.CounterVec
	SweepDuration       prometheus.Histogram
	StageTotal          *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	AssetsDiscovered    prometheus.Counter
)

func Init() {
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

	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_sweeps_total",
			Help: "Total number of orchestrator sweeps.",
		},
		[]string{"trigger"}, // scheduled or manual
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_sweep_duration_seconds",
			Help:    "Duration of orchestrator sweeps.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	StageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Total number of stage executions by outcome.",
		},
		[]string{"stage", "outcome"}, // outcome: success, retry, failed
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of individual stage executions.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"stage"},
	)

	AssetsDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_assets_discovered_total",
			Help: "Total number of new assets recorded after extraction.",
		},
	)
}
