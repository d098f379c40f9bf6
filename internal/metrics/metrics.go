package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "llm_requests_total",
			Help:      "Total number of chat-completion requests",
		},
		[]string{"component", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "palate",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat-completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"component", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "llm_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"component", "model", "type"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "embedding_requests_total",
			Help:      "Total number of query-embedding requests",
		},
		[]string{"model", "status"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "turns_total",
			Help:      "Total conversation turns processed, by resulting action",
		},
		[]string{"action"},
	)

	SearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "searches_total",
			Help:      "Total retrieval+rerank pipelines executed",
		},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "fallbacks_total",
			Help:      "Total deterministic fallbacks taken after collaborator failures",
		},
		[]string{"component"},
	)

	ShardSearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "palate",
			Name:      "shard_search_errors_total",
			Help:      "Total per-shard search failures (skipped, not fatal)",
		},
		[]string{"shard"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(ShardSearchErrorsTotal)
	pipelineMetricsRegistered = true
}
