// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// UtterancesStored tracks utterances appended to the conversation window.
	UtterancesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utterances_stored_total",
			Help: "Utterances stored, by speaker role",
		},
		[]string{"speaker"},
	)

	// TriggerOutcomes tracks hero trigger detection results.
	TriggerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hero_trigger_outcomes_total",
			Help: "Hero message processing outcomes",
		},
		[]string{"outcome"},
	)

	// RetrievalPath tracks which context-retrieval path was taken.
	RetrievalPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_retrieval_path_total",
			Help: "Past-meeting context retrieval path taken",
		},
		[]string{"path"},
	)

	// LLMRequestDuration tracks LLM completion duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 15, 20, 30},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// EmbeddingsGenerated tracks generated embeddings.
	EmbeddingsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embeddings_generated_total",
			Help: "Embeddings generated, by status",
		},
		[]string{"status"},
	)

	// MeetingsTotal tracks meeting sessions created.
	MeetingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetings_total",
			Help: "Meeting sessions created",
		},
		[]string{"org_name"},
	)

	// TTSSyntheses tracks text-to-speech synthesis calls.
	TTSSyntheses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_syntheses_total",
			Help: "Text-to-speech synthesis calls",
		},
		[]string{"provider", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMRequest records metrics for an LLM completion.
func RecordLLMRequest(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
