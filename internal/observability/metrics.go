package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	questionOutcomesTotal *prometheus.CounterVec
	batchDurationSeconds  *prometheus.HistogramVec
	statsCacheTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the generation pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labgen_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labgen_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labgen_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		questionOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labgen_generated_questions_total",
			Help: "Generated questions by outcome (rephrased, fallback, skipped).",
		}, []string{"outcome"})

		batchDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labgen_batch_duration_seconds",
			Help:    "Wall-clock duration of question generation batches.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"status"})

		statsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labgen_stats_cache_total",
			Help: "Stats cache lookups by result (hit, miss).",
		}, []string{"result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, questionOutcomesTotal, batchDurationSeconds, statsCacheTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// QuestionOutcomes exposes the per-question outcome counter.
func QuestionOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return questionOutcomesTotal
}

// BatchDuration exposes the batch duration histogram.
func BatchDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return batchDurationSeconds
}

// StatsCache exposes the stats cache hit/miss counter.
func StatsCache() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheTotal
}

// MetricsHandler serves the default Prometheus registry through Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
