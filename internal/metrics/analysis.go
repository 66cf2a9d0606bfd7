package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "docqa"

// LLM, analysis and retrieval Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"model", "mode", "status"}, // mode: "stream" / "complete"
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Time until the LLM response (or first stream chunk) arrived",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model", "mode"},
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Total LLM errors",
		},
		[]string{"model", "error_type"},
	)

	AnalysisStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_streams_total",
			Help:      "Analysis streams by terminal outcome",
		},
		[]string{"strategy", "outcome"}, // outcome: "completed" / "cancelled" / "failed"
	)

	AnalysisFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_fallback_total",
			Help:      "Analysis strategies skipped, by strategy",
		},
		[]string{"strategy"},
	)

	AnalysisCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_total",
			Help:      "Analysis result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_total",
			Help:      "Retrievals by the path that produced the result",
		},
		[]string{"mode"}, // "vector" / "lexical" / "degraded"
	)

	IndexVectors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_vectors",
			Help:      "Number of chunk vectors in the similarity index",
		},
	)

	VectorizerBootstrapFitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vectorizer_bootstrap_fits_total",
			Help:      "Vector space fits performed on query text because nothing was ingested",
		},
	)
)

var analysisMetricsRegistered bool

// RegisterAnalysisMetrics registers the LLM, analysis and retrieval metrics. Must be called once from main.
func RegisterAnalysisMetrics() {
	if analysisMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMErrorsTotal)
	prometheus.MustRegister(AnalysisStreamsTotal)
	prometheus.MustRegister(AnalysisFallbackTotal)
	prometheus.MustRegister(AnalysisCacheTotal)
	prometheus.MustRegister(RetrievalTotal)
	prometheus.MustRegister(IndexVectors)
	prometheus.MustRegister(VectorizerBootstrapFitsTotal)
	analysisMetricsRegistered = true
}
