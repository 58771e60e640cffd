package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"strom_requests_total":               false,
		"strom_request_duration_seconds":     false,
		"strom_streaming_connections_active": false,
		"strom_agent_runs_total":             false,
		"strom_agent_latency_seconds":        false,
		"strom_reported_tokens_total":        false,
		"strom_frames_emitted_total":         false,
		"strom_stream_failures_total":        false,
		"strom_ratelimit_rejected_total":     false,
	}

	// Vectors only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "2xx", "test").Inc()
	RequestDuration.WithLabelValues("GET", "test").Observe(0.1)
	AgentRunsTotal.WithLabelValues("echo", "test", "completed").Inc()
	AgentLatency.WithLabelValues("echo", "test").Observe(0.1)
	ReportedTokensTotal.WithLabelValues("echo", "test", "input").Add(10)
	FramesEmittedTotal.WithLabelValues("response.created").Inc()
	StreamFailuresTotal.WithLabelValues("protocol_violation").Inc()
	RateLimitRejectedTotal.WithLabelValues("default").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestMetricsMiddlewareStatusClasses(t *testing.T) {
	tests := []struct {
		name   string
		method string
		write  func(w http.ResponseWriter)
		class  string
	}{
		{"explicit 200", "POST", func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) }, "2xx"},
		{"implicit 200 on write", "POST", func(w http.ResponseWriter) { w.Write([]byte("data: [DONE]\n\n")) }, "2xx"},
		{"nothing written", "GET", func(http.ResponseWriter) {}, "2xx"},
		{"bad request", "POST", func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadRequest) }, "4xx"},
		{"bad gateway", "POST", func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) }, "5xx"},
		{"first status wins", "PUT", func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.WriteHeader(http.StatusOK)
		}, "4xx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, RequestsTotal, tt.method, tt.class, "unmatched")
			durBefore := histogramCount(t, RequestDuration, tt.method, "unmatched")

			handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.write(w)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, "/v1/responses", nil))

			if d := counterValue(t, RequestsTotal, tt.method, tt.class, "unmatched") - before; d != 1 {
				t.Errorf("%s count delta = %v, want 1", tt.class, d)
			}
			if d := histogramCount(t, RequestDuration, tt.method, "unmatched") - durBefore; d != 1 {
				t.Errorf("duration samples delta = %d, want 1", d)
			}
		})
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	const route = "DELETE /v1/responses/{id}"
	before := counterValue(t, RequestsTotal, "DELETE", "2xx", route)

	mux := http.NewServeMux()
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := MetricsMiddleware(mux)

	for _, id := range []string{"run_a", "run_b", "resp_c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/v1/responses/"+id, nil))
	}

	if d := counterValue(t, RequestsTotal, "DELETE", "2xx", route) - before; d != 3 {
		t.Errorf("requests under %q delta = %v, want 3", route, d)
	}
}

func TestMetricsMiddlewareCountsPanickingHandler(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "2xx", "unmatched")
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	func() {
		defer func() {
			if r := recover(); r != http.ErrAbortHandler {
				t.Errorf("recovered %v, want ErrAbortHandler", r)
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/responses", nil))
	}()

	if d := counterValue(t, RequestsTotal, "POST", "2xx", "unmatched") - before; d != 1 {
		t.Errorf("delta = %v, want 1", d)
	}
}

func TestStatusRecorderFlushAndUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}

	if err := http.NewResponseController(sr).Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !rec.Flushed {
		t.Error("underlying writer not flushed")
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap did not return the underlying writer")
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	FramesEmittedTotal.WithLabelValues("response.completed").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "strom_frames_emitted_total") {
		t.Error("metrics output missing strom_frames_emitted_total")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
