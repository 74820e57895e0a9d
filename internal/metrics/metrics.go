package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_generations_total",
			Help: "Total number of artifact generations by outcome.",
		},
		[]string{"artifact", "outcome"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhub_generation_duration_seconds",
			Help:    "End-to-end generation pipeline duration in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"artifact"},
	)

	ReformatAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_reformat_attempts_total",
			Help: "Total number of strict-JSON re-prompts after a parse failure.",
		},
		[]string{"artifact", "result"},
	)

	FlashcardRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_flashcard_repairs_total",
			Help: "Total number of flashcard back repairs by method.",
		},
		[]string{"method"},
	)

	ModelRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhub_model_retries_total",
			Help: "Total number of transient model invocation retries.",
		},
	)

	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_quota_rejections_total",
			Help: "Total number of requests rejected by the daily quota.",
		},
		[]string{"kind", "tier"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		GenerationDuration,
		ReformatAttemptsTotal,
		FlashcardRepairsTotal,
		ModelRetriesTotal,
		QuotaRejectionsTotal,
	)
}
