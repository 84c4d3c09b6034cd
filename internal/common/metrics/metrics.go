// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	IntelligenceBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_builds_total",
			Help: "Place intelligence builds by outcome (success, cache_hit, fallback)",
		},
		[]string{"outcome"},
	)

	IntelligenceBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intelligence_build_duration_seconds",
			Help:    "Duration of place intelligence builds in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	IntelligenceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_cache_lookups_total",
			Help: "Cache lookups per space (result, external, context, shared) and result (hit, miss)",
		},
		[]string{"space", "result"},
	)

	IntelligenceUpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_upstream_requests_total",
			Help: "Upstream calls per gateway (rating_proxy, weather) and outcome",
		},
		[]string{"gateway", "outcome"},
	)

	IntelligenceTelemetrySnapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_telemetry_snapshots_total",
			Help: "Telemetry snapshots by result (written, sampled_out, rate_limited, dropped, failed)",
		},
		[]string{"result"},
	)
)
