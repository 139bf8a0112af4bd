// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records runtime metrics for chat turns, retrieval and LLM calls.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Chat turn metrics
	turnsTotal           *prometheus.CounterVec
	turnDuration         *prometheus.HistogramVec
	refinementIterations prometheus.Histogram
	evidenceFragments    prometheus.Histogram

	// LLM metrics
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec

	// Session metrics
	sessionUpdateFailures prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered in the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP metrics
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Chat turn metrics
	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Total number of processed chat turns",
		},
		[]string{"outcome"}, // outcome: answered, fallback, error
	)

	c.turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_turn_duration_seconds",
			Help:      "End-to-end chat turn duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	c.refinementIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refinement_iterations",
			Help:      "Number of refinement iterations per chat turn",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	c.evidenceFragments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evidence_fragments",
			Help:      "Number of unique evidence fragments accumulated per chat turn",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
	)

	// LLM metrics
	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "role", "status"}, // role: planner, evaluator, synthesizer
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "role"},
	)

	// Session metrics
	c.sessionUpdateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_update_failures_total",
			Help:      "Total number of failed session history updates",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordHTTPRequest records one HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTurn records one completed chat turn.
func (c *Collector) RecordTurn(outcome string, duration time.Duration, iterations, fragments int) {
	c.turnsTotal.WithLabelValues(outcome).Inc()
	c.turnDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.refinementIterations.Observe(float64(iterations))
	c.evidenceFragments.Observe(float64(fragments))
}

// RecordLLMRequest records one LLM call.
func (c *Collector) RecordLLMRequest(provider, role, status string, duration time.Duration) {
	c.llmRequestsTotal.WithLabelValues(provider, role, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, role).Observe(duration.Seconds())
}

// RecordSessionUpdateFailure records a failed session history append.
func (c *Collector) RecordSessionUpdateFailure() {
	c.sessionUpdateFailures.Inc()
}

// statusCode maps an HTTP status code to its class label.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
