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
			Help: "Total number of Zeebe jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of Zeebe jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_pipeline_runs_total",
			Help: "Query pipeline invocations by outcome",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_llm_calls_total",
			Help: "Language model calls by purpose and outcome",
		},
		[]string{"purpose", "status"},
	)

	SearchCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_search_cache_lookups_total",
			Help: "Search cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	CrawlPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_crawl_polls_total",
			Help: "Crawl job status polls by observed status",
		},
		[]string{"status"},
	)

	DroppedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_dropped_records_total",
			Help: "Records skipped during validation, by stage and reason",
		},
		[]string{"stage", "reason"},
	)

	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_audit_writes_total",
			Help: "Audit artifact writes by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	InFlightQueries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_inflight_queries",
			Help: "Number of queries currently being processed",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_http_requests_total",
			Help: "Inbound API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
