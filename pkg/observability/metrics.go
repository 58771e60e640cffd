// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the strom gateway.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunBuckets defines histogram buckets suited for agent run latencies,
// ranging from 100ms to 120s.
var RunBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strom_request_duration_seconds",
			Help:    "Request duration",
			Buckets: RunBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks SSE responses that have started streaming
	// and not yet finished.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strom_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// AgentRunsTotal counts agent runs by outcome (completed or a failure kind).
	AgentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_agent_runs_total",
			Help: "Agent runs",
		},
		[]string{"agent", "model", "outcome"},
	)

	// AgentLatency records wall time of an agent run in seconds.
	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strom_agent_latency_seconds",
			Help:    "Agent run latency",
			Buckets: RunBuckets,
		},
		[]string{"agent", "model"},
	)

	// ReportedTokensTotal counts tokens reported by agents, by direction
	// (input/output).
	ReportedTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_reported_tokens_total",
			Help: "Token count reported by agents",
		},
		[]string{"agent", "model", "direction"},
	)

	// FramesEmittedTotal counts SSE frames written, by frame type.
	FramesEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_frames_emitted_total",
			Help: "SSE frames emitted",
		},
		[]string{"type"},
	)

	// StreamFailuresTotal counts aborted streams by failure kind.
	StreamFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_stream_failures_total",
			Help: "Aborted streams",
		},
		[]string{"kind"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strom_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		AgentRunsTotal,
		AgentLatency,
		ReportedTokensTotal,
		FramesEmittedTotal,
		StreamFailuresTotal,
		RateLimitRejectedTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
