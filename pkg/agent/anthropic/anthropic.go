// Package anthropic implements an agent backed by the Anthropic Messages
// API. Text blocks of the streamed message become content spans; the
// message_start event starts the run and the final usage completes it.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/run"
)

// DefaultMaxTokens is used when Config.MaxTokens is zero. The Messages API
// requires an explicit limit.
const DefaultMaxTokens = 4096

// Config holds the settings for the Anthropic agent.
type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	MaxTokens  int64
	HTTPClient *http.Client
}

// Agent drives the Messages streaming API.
type Agent struct {
	client anthropic.Client
	cfg    Config
	now    func() time.Time
}

var _ agent.Agent = (*Agent)(nil)

// New creates an Anthropic agent.
func New(cfg Config) *Agent {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Agent{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Name returns "anthropic".
func (a *Agent) Name() string { return "anthropic" }

// Close is a no-op.
func (a *Agent) Close() error { return nil }

// Run opens a streaming message and adapts it to run events.
func (a *Agent) Run(ctx context.Context, req *agent.Request) (run.Source, error) {
	params := a.buildParams(req)
	debug.Log("agent", "anthropic run", "model", req.Model, "messages", len(params.Messages))

	return run.Stream(ctx, func(ctx context.Context, emit run.EmitFunc) error {
		stream := a.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		started := false
		open := false
		var input, cacheRead, output int64

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.MessageStartEvent:
				started = true
				input = ev.Message.Usage.InputTokens
				cacheRead = ev.Message.Usage.CacheReadInputTokens
				output = ev.Message.Usage.OutputTokens
				if err := emit(run.Started{RunID: ev.Message.ID, CreatedAt: a.now().Unix()}); err != nil {
					return err
				}

			case anthropic.ContentBlockDeltaEvent:
				delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || delta.Text == "" {
					continue
				}
				open = true
				if err := emit(run.Content{ContentType: run.ContentTypeText, Content: delta.Text}); err != nil {
					return err
				}

			case anthropic.ContentBlockStopEvent:
				if !open {
					continue
				}
				open = false
				if err := emit(run.ContentCompleted{}); err != nil {
					return err
				}

			case anthropic.MessageDeltaEvent:
				output = ev.Usage.OutputTokens
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic streaming error: %w", err)
		}
		if !started {
			return fmt.Errorf("anthropic stream ended without message_start")
		}
		if open {
			if err := emit(run.ContentCompleted{}); err != nil {
				return err
			}
		}

		m := &run.Metrics{
			InputTokens:  int(input),
			OutputTokens: int(output),
			TotalTokens:  int(input + output),
		}
		if cacheRead > 0 {
			c := int(cacheRead)
			m.CacheReadTokens = &c
		}
		return emit(run.Completed{Metrics: m})
	}), nil
}

func (a *Agent) buildParams(req *agent.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: anthropic.Float(clampTemperature(req.Temperature)),
	}
	for _, m := range req.Messages {
		text := m.Text()
		switch m.Role {
		case agent.RoleSystem, agent.RoleDeveloper:
			if text != "" {
				params.System = append(params.System, anthropic.TextBlockParam{Text: text})
			}
		case agent.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	return params
}

// clampTemperature maps the 0..2 range accepted on the wire to the 0..1
// range of the Messages API.
func clampTemperature(t float64) float64 {
	if t > 1 {
		return 1
	}
	if t < 0 {
		return 0
	}
	return t
}
