package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/observability"
	"github.com/rhuss/strom/pkg/transport"
)

// Adapter serves the Responses API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	creator  transport.ResponseCreator
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
	guards   []func(http.Handler) http.Handler
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter with the given ResponseCreator.
// Middleware is applied to the ResponseCreator in the given order.
func NewAdapter(creator transport.ResponseCreator, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		creator = transport.Chain(middlewares...)(creator)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		creator:  creator,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.Handle("POST /v1/responses", a.guarded(a.handleCreateResponse))
	a.mux.Handle("DELETE /v1/responses/{id}", a.guarded(a.handleCancelResponse))

	return a
}

// Use adds HTTP middleware, such as authentication, in front of the API
// routes. Handlers registered with Handle are not affected. Use must be
// called before the adapter serves requests.
func (a *Adapter) Use(mw ...func(http.Handler) http.Handler) {
	a.guards = append(a.guards, mw...)
}

// Handle registers an extra handler on the adapter's mux, such as the
// health and metrics endpoints.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

func (a *Adapter) guarded(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var next http.Handler = h
		for i := len(a.guards) - 1; i >= 0; i-- {
			next = a.guards[i](next)
		}
		next.ServeHTTP(w, r)
	})
}

// InFlight returns the registry of streaming responses.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation and request metrics.
// Metrics sit directly on the mux so the matched route pattern is visible.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. A client-supplied id is kept, otherwise a new one
// is generated. The id is stored in the request context and echoed in the
// response headers before the first write.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleCreateResponse handles POST /v1/responses.
func (a *Adapter) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.config.MaxBodySize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "failed to read body: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	req, err := api.DecodeCreateRequest(body)
	if err != nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid request: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	debug.Log("transport", "create response", "stream", req.IsStream(), "model", req.Model, "bytes", len(body))

	if req.IsStream() {
		a.handleStreamingResponse(w, r, req)
		return
	}

	rw := newSSEResponseWriter(w, nil)
	if err := a.creator.CreateResponse(r.Context(), req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleStreamingResponse handles streaming POST requests (stream: true).
// The serving context is registered under the response id once the
// response.created frame went out, so a DELETE can cancel it.
func (a *Adapter) handleStreamingResponse(w http.ResponseWriter, r *http.Request, req *api.CreateResponseRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	release := func() {}
	rw := newSSEResponseWriter(w, func(id string) {
		release = a.inflight.Register(id, cancel)
	})
	defer rw.finish()

	err := a.creator.CreateResponse(ctx, req, rw)
	release()

	if err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleCancelResponse handles DELETE /v1/responses/{id}. Only streams
// that are still being written can be cancelled; nothing is stored.
func (a *Adapter) handleCancelResponse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "response id is required"),
			http.StatusBadRequest,
		)
		return
	}

	if a.inflight.Cancel(id) {
		slog.InfoContext(r.Context(), "streaming response cancelled", "response_id", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	transport.WriteAPIError(w, api.NewNotFoundError("response "+id+" is not streaming"))
}

// writeHandlerError writes an error response from the handler. Once
// streaming has started nothing more is written: the client sees a
// truncated stream without the [DONE] sentinel. Otherwise it writes a
// standard JSON error response.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if rw.hasStartedStreaming() {
		debug.Log("transport", "stream truncated", "error", err)
		return
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError(err.Error())
	}
	transport.WriteAPIError(w, apiErr)
}
