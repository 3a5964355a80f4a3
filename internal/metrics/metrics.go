// Package metrics exposes Prometheus instruments for the answer pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusRetry    = "retry"
	StatusDegraded = "degraded"
	StatusSkipped  = "skipped"
)

var (
	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_answers_total",
		Help: "Total number of answered queries by outcome",
	}, []string{"outcome"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_tool_calls_total",
		Help: "Total number of tool executions",
	}, []string{"tool", "status"})

	reasoningRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_reasoning_requests_total",
		Help: "Total number of reasoning service round trips",
	}, []string{"status"})

	reasoningLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumen_reasoning_latency_seconds",
		Help:    "Reasoning service round trip latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	searchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumen_search_latency_seconds",
		Help:    "Index search latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumen_index_build_seconds",
		Help:    "Index build duration in seconds",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
	})

	indexedChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumen_indexed_chunks",
		Help: "Number of chunks in the embedding index",
	})

	documentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_ingested_documents_total",
		Help: "Total number of documents seen during ingestion",
	}, []string{"status"})
)

// RecordAnswer records a finished query.
func RecordAnswer(outcome string) {
	answersTotal.WithLabelValues(outcome).Inc()
}

// RecordToolCall records one tool execution.
func RecordToolCall(tool, status string) {
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordReasoning records one reasoning round trip attempt.
func RecordReasoning(status string, d time.Duration) {
	reasoningRequests.WithLabelValues(status).Inc()
	reasoningLatency.Observe(d.Seconds())
}

// RecordSearch records one index search.
func RecordSearch(d time.Duration) {
	searchLatency.Observe(d.Seconds())
}

// RecordBuild records a completed index build.
func RecordBuild(chunks int, d time.Duration) {
	buildDuration.Observe(d.Seconds())
	indexedChunks.Set(float64(chunks))
}

// RecordDocument records one document seen by ingestion.
func RecordDocument(status string) {
	documentsTotal.WithLabelValues(status).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
