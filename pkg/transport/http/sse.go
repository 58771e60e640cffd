package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/observability"
	"github.com/rhuss/strom/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // WriteEvent has been called at least once
	writerCompleted                    // Sentinel sent or WriteResponse called
)

// sseResponseWriter implements transport.ResponseWriter for HTTP/SSE responses.
// It handles both streaming (SSE) and non-streaming (JSON) output.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu      sync.Mutex
	state   writerState
	streams bool // true once the first frame went out
	frames  int

	// onResponseCreated is called when the first response.created event is
	// written, providing the response ID for in-flight registry registration.
	onResponseCreated func(id string)
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter creates a new ResponseWriter wrapping an http.ResponseWriter.
// The onCreated callback is called with the response ID when the first
// response.created event is written (may be nil if not needed).
func newSSEResponseWriter(w http.ResponseWriter, onCreated func(id string)) *sseResponseWriter {
	return &sseResponseWriter{
		w:                 w,
		rc:                http.NewResponseController(w),
		onResponseCreated: onCreated,
	}
}

// WriteEvent sends a single frame formatted as
//
//	data: {json}\n
//	\n
//
// and flushes it before returning.
func (s *sseResponseWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// First event: set SSE headers.
	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.state = writerStreaming
		s.streams = true
		observability.StreamingConnections.Inc()
	}

	// Intercept response.created to extract the response ID.
	if event.Type == api.EventResponseCreated && event.Response != nil && s.onResponseCreated != nil {
		s.onResponseCreated(event.Response.ID)
		s.onResponseCreated = nil // Only call once.
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	s.frames++
	observability.FramesEmittedTotal.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// WriteDone sends the [DONE] sentinel and completes the writer.
func (s *sseResponseWriter) WriteDone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerStreaming {
		return errors.New("cannot write sentinel: stream not started or already completed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", api.DoneSentinel); err != nil {
		return fmt.Errorf("failed to write [DONE]: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush [DONE]: %w", err)
	}
	s.state = writerCompleted
	observability.FramesEmittedTotal.WithLabelValues("done").Inc()
	return nil
}

// WriteResponse sends a complete non-streaming JSON response.
// This is mutually exclusive with WriteEvent.
func (s *sseResponseWriter) WriteResponse(ctx context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseResponseWriter) Flush() error {
	return s.rc.Flush()
}

// hasStartedStreaming returns true if at least one SSE frame has been written.
func (s *sseResponseWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

// finish releases the streaming connection gauge. It is called once the
// handler returned, whether the stream completed or was cut off.
func (s *sseResponseWriter) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams {
		observability.StreamingConnections.Dec()
		s.streams = false
		s.state = writerCompleted
	}
}
