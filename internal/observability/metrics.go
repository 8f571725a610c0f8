package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "futureroot"

// Metrics holds the Prometheus collectors for enrichment jobs, deferred tasks,
// ZIP resolution, upstream APIs and recommendations.
type Metrics struct {
	// Enrichment job metrics.
	EnrichmentRecords     *prometheus.CounterVec   // labels: job, outcome={updated,skipped,already_set}
	EnrichmentRunDuration *prometheus.HistogramVec // labels: job

	// Deferred task metrics.
	TasksEnqueued  *prometheus.CounterVec   // labels: type
	TasksProcessed *prometheus.CounterVec   // labels: type, outcome={succeeded,failed}
	TaskDuration   *prometheus.HistogramVec // labels: type
	WorkerRunning  prometheus.Gauge
	JobsSwept      prometheus.Counter

	// ZIP resolution metrics.
	ResolveRequests *prometheus.CounterVec   // labels: source={mapbox,table}, outcome={success,error,empty}
	ResolveCache    *prometheus.CounterVec   // labels: result={hit,miss}
	ResolveDuration *prometheus.HistogramVec // labels: source
	MapboxEnabled   prometheus.Gauge

	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: service, outcome={success,error,rejected}
	UpstreamDuration *prometheus.HistogramVec // labels: service
	BreakerState     *prometheus.GaugeVec     // labels: service; 0 closed, 1 half-open, 2 open

	// Recommendation metrics.
	Recommendations          *prometheus.CounterVec // labels: outcome={succeeded,failed,persist_failed}
	RecommendationCandidates prometheus.Histogram
}

var (
	runBuckets       = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900}
	taskBuckets      = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}
	apiBuckets       = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	candidateBuckets = []float64{0, 1, 2, 3, 5, 7, 10}
)

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EnrichmentRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_records_total",
			Help:      "Records visited by enrichment jobs by job and outcome.",
		}, []string{"job", "outcome"}),
		EnrichmentRunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_run_duration_seconds",
			Help:      "Wall time of a complete enrichment job run.",
			Buckets:   runBuckets,
		}, []string{"job"}),
		TasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_enqueued_total",
			Help:      "Deferred tasks accepted onto the queue.",
		}, []string{"type"}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Deferred tasks processed by type and outcome.",
		}, []string{"type", "outcome"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent executing one deferred task.",
			Buckets:   taskBuckets,
		}, []string{"type"}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_running",
			Help:      "1 when the task worker is consuming, 0 otherwise.",
		}),
		JobsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_swept_total",
			Help:      "Stale jobs marked failed by the sweeper.",
		}),
		ResolveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_resolve_requests_total",
			Help:      "ZIP resolution lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		ResolveCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_resolve_cache_total",
			Help:      "ZIP resolution cache lookups by result.",
		}, []string{"result"}),
		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "zip_resolve_duration_seconds",
			Help:      "ZIP resolution latency by source.",
			Buckets:   apiBuckets,
		}, []string{"source"}),
		MapboxEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapbox_enabled",
			Help:      "1 when Mapbox ZIP resolution is enabled, 0 otherwise.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Calls to third-party data sources by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Third-party data source latency by service.",
			Buckets:   apiBuckets,
		}, []string{"service"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_breaker_state",
			Help:      "Circuit breaker state per service: 0 closed, 1 half-open, 2 open.",
		}, []string{"service"}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation runs by outcome.",
		}, []string{"outcome"}),
		RecommendationCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_candidates",
			Help:      "Candidates returned per recommendation.",
			Buckets:   candidateBuckets,
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EnrichmentRecords,
		m.EnrichmentRunDuration,
		m.TasksEnqueued,
		m.TasksProcessed,
		m.TaskDuration,
		m.WorkerRunning,
		m.JobsSwept,
		m.ResolveRequests,
		m.ResolveCache,
		m.ResolveDuration,
		m.MapboxEnabled,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.BreakerState,
		m.Recommendations,
		m.RecommendationCandidates,
	}
}
