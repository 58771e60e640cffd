package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/auth"
	"github.com/rhuss/strom/pkg/observability"
	"github.com/rhuss/strom/pkg/run"
	"github.com/rhuss/strom/pkg/transport"
)

// Engine orchestrates request processing between the transport layer
// and the agent. It implements transport.ResponseCreator.
type Engine struct {
	agent  agent.Agent
	cfg    Config
	logger *slog.Logger
	opts   []TranslatorOption
}

// Ensure Engine implements transport.ResponseCreator at compile time.
var _ transport.ResponseCreator = (*Engine)(nil)

// New creates a new Engine. The agent must not be nil. Translator options
// are applied to every response.
func New(a agent.Agent, cfg Config, opts ...TranslatorOption) (*Engine, error) {
	if a == nil {
		return nil, fmt.Errorf("engine: agent must not be nil")
	}
	return &Engine{
		agent:  a,
		cfg:    cfg,
		logger: slog.Default(),
		opts:   opts,
	}, nil
}

// CreateResponse validates and normalizes the request, starts an agent run
// and translates its events. Streaming requests get frames written to w as
// they are produced; non-streaming requests get the final response once
// the run completed.
//
// Errors returned before the first frame are *api.APIError values the
// transport renders as JSON. Once a frame was written, the returned error
// is the *StreamError that aborted the stream and the client is left with
// a truncated stream without the sentinel.
func (e *Engine) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w transport.ResponseWriter) error {
	if apiErr := api.ValidateRequest(req, e.cfg.validation()); apiErr != nil {
		return apiErr
	}

	// Apply default model if the request omits it.
	if req.Model == "" {
		if e.cfg.DefaultModel == "" {
			return api.NewInvalidRequestError("model", "model is required")
		}
		req.Model = e.cfg.DefaultModel
	}

	agentReq := translateRequest(req, e.cfg)

	start := time.Now()
	src, err := e.agent.Run(ctx, agentReq)
	if err != nil {
		e.observe(ctx, req.Model, start, nil, err, 0)
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return api.NewUpstreamError("", fmt.Sprintf("agent %s: %v", e.agent.Name(), err))
	}

	if agentReq.Stream {
		tr := NewTranslator(req.Model, w, e.translatorOptions()...)
		err := tr.Run(ctx, src)
		e.observe(ctx, req.Model, start, tr.Response(), err, tr.FramesWritten())
		if err != nil && tr.FramesWritten() == 0 {
			return streamAPIError(err)
		}
		return err
	}

	resp, err := drain(ctx, req.Model, src, e.translatorOptions()...)
	e.observe(ctx, req.Model, start, resp, err, 0)
	if err != nil {
		return streamAPIError(err)
	}
	return w.WriteResponse(ctx, singleMessage(resp))
}

func (e *Engine) translatorOptions() []TranslatorOption {
	return append([]TranslatorOption{WithLogger(e.logger)}, e.opts...)
}

// observe records the outcome of one run and logs failures once.
func (e *Engine) observe(ctx context.Context, model string, start time.Time, resp *api.Response, err error, frames int) {
	name := e.agent.Name()
	observability.AgentLatency.WithLabelValues(name, model).Observe(time.Since(start).Seconds())

	if resp != nil && resp.Usage != nil {
		observability.ReportedTokensTotal.WithLabelValues(name, model, "input").Add(float64(resp.Usage.InputTokens))
		observability.ReportedTokensTotal.WithLabelValues(name, model, "output").Add(float64(resp.Usage.OutputTokens))
	}

	if err == nil {
		observability.AgentRunsTotal.WithLabelValues(name, model, "completed").Inc()
		return
	}

	kind := FailureKind(err)
	var se *StreamError
	if !errors.As(err, &se) {
		kind = "run_error"
	} else {
		observability.StreamFailuresTotal.WithLabelValues(kind).Inc()
	}
	observability.AgentRunsTotal.WithLabelValues(name, model, kind).Inc()

	attrs := []slog.Attr{
		slog.String("request_id", transport.RequestIDFromContext(ctx)),
		slog.String("agent", name),
		slog.String("model", model),
		slog.String("kind", kind),
		slog.Int("frames_written", frames),
		slog.String("error", err.Error()),
	}
	if id := auth.IdentityFromContext(ctx); id != nil {
		attrs = append(attrs, slog.String("subject", id.Subject))
	}
	e.logger.LogAttrs(ctx, slog.LevelWarn, "agent run failed", attrs...)
}

// streamAPIError converts a translation failure into the error returned to
// a client that has not received any frame yet.
func streamAPIError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch FailureKind(err) {
	case "protocol_violation":
		return api.NewUpstreamError(api.CodeProtocolViolation, err.Error())
	case "upstream_exhausted":
		return api.NewUpstreamError(api.CodeUpstreamExhausted, err.Error())
	case "transport_failure":
		return api.NewUpstreamError(api.CodeTransportFailure, err.Error())
	}
	return api.NewServerError(err.Error())
}

// collectSink accepts every frame without delivering it. The non-streaming
// path reads the final snapshot from the translator instead.
type collectSink struct {
	frames int
	done   bool
}

func (s *collectSink) WriteEvent(_ context.Context, _ api.StreamEvent) error {
	s.frames++
	return nil
}

func (s *collectSink) WriteDone(_ context.Context) error {
	s.done = true
	return nil
}

var _ FrameSink = (*collectSink)(nil)

// Ensure transport writers can serve as frame sinks.
var _ FrameSink = (transport.ResponseWriter)(nil)

// Drain consumes src through a fresh translator that discards frames and
// returns the final response. It serves callers that need the completed
// response without a transport, such as the CLI.
//
// The result holds exactly one assistant message with one output_text part
// whose text joins every content span of the run.
func Drain(ctx context.Context, model string, src run.Source, opts ...TranslatorOption) (*api.Response, error) {
	resp, err := drain(ctx, model, src, opts...)
	if err != nil {
		return nil, err
	}
	return singleMessage(resp), nil
}

func drain(ctx context.Context, model string, src run.Source, opts ...TranslatorOption) (*api.Response, error) {
	var sink collectSink
	tr := NewTranslator(model, &sink, opts...)
	if err := tr.Run(ctx, src); err != nil {
		return tr.Response(), err
	}
	return tr.Response(), nil
}

// singleMessage folds the output of a completed response into one message
// with one text part. A run without content yields a part with empty text.
func singleMessage(resp *api.Response) *api.Response {
	out := *resp
	msg := api.OutputItem{
		Role:   api.RoleAssistant,
		Status: api.ItemStatusCompleted,
		Type:   api.ItemTypeMessage,
	}
	var text strings.Builder
	for i, item := range resp.Output {
		if i == 0 {
			msg.ID = item.ID
		}
		for _, part := range item.Content {
			text.WriteString(part.Text)
		}
	}
	if msg.ID == "" {
		msg.ID = api.NewMessageID()
	}
	msg.Content = []api.OutputTextPart{{
		Annotations: []json.RawMessage{},
		Text:        text.String(),
		Type:        api.PartTypeOutputText,
	}}
	out.Output = []api.OutputItem{msg}
	return &out
}
