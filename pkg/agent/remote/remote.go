// Package remote implements an agent that forwards the run to an external
// agent service. The service receives the normalized request as JSON and
// answers with an SSE stream whose events are the run events themselves
// (RunStarted, RunContent, RunContentCompleted, RunCompleted).
package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/run"
)

// maxEventSize bounds a single SSE data payload.
const maxEventSize = 1 << 20

// Config holds the settings for the remote agent.
type Config struct {
	// URL of the run endpoint, e.g. "http://agent:8000/v1/runs".
	URL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Agent streams runs from a remote agent service.
type Agent struct {
	cfg    Config
	client *http.Client
}

var _ agent.Agent = (*Agent)(nil)

// New creates a remote agent.
func New(cfg Config) (*Agent, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote agent: url is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Agent{cfg: cfg, client: client}, nil
}

// Name returns "remote".
func (a *Agent) Name() string { return "remote" }

// Close releases idle connections.
func (a *Agent) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Run posts the request and returns a Source reading the SSE response.
// Non-2xx answers are reported as errors before any event is produced.
func (a *Agent) Run(ctx context.Context, req *agent.Request) (run.Source, error) {
	body := *req
	body.Stream = true
	data, err := json.Marshal(&body)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal run request: %s", err.Error()))
	}

	// Closing the returned source cancels the exchange.
	streamCtx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, a.cfg.URL, bytes.NewReader(data))
	if err != nil {
		cancel()
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if a.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, agent.MapNetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		return nil, agent.MapHTTPError(resp)
	}

	src := run.Stream(streamCtx, func(ctx context.Context, emit run.EmitFunc) error {
		defer resp.Body.Close()
		return ParseEventStream(ctx, resp.Body, emit)
	})
	return &cancelSource{Source: src, cancel: cancel}, nil
}

// cancelSource aborts the HTTP exchange on Close.
type cancelSource struct {
	run.Source
	cancel context.CancelFunc
}

func (s *cancelSource) Close() error {
	s.cancel()
	return s.Source.Close()
}

// ParseEventStream reads an SSE body and emits one run event per SSE
// event. The event name comes from the "event:" field or, when absent,
// from the payload's "event" member. A "[DONE]" payload ends the stream.
//
// SSE format expected:
//
//	event: RunContent
//	data: {"content":"Hi","content_type":"str"}
//
// Comment lines and unknown fields are ignored. A connection that drops
// mid-stream surfaces as the scanner error.
func ParseEventStream(ctx context.Context, body io.Reader, emit run.EmitFunc) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var name string
	var data strings.Builder

	dispatch := func() (bool, error) {
		defer func() {
			name = ""
			data.Reset()
		}()
		if data.Len() == 0 && name == "" {
			return false, nil
		}
		payload := data.String()
		if payload == api.DoneSentinel {
			return true, nil
		}
		debug.Log("streaming", "remote event", "event", name, "data", debug.Truncate(payload, 200))
		ev, err := run.Decode(name, []byte(payload))
		if err != nil {
			return false, err
		}
		return false, emit(ev)
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()

		if line == "" {
			done, err := dispatch()
			if err != nil || done {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading agent stream: %w", err)
	}

	// A final event without a trailing blank line still counts.
	_, err := dispatch()
	return err
}
