// Package openai implements an agent backed by an OpenAI-compatible Chat
// Completions endpoint. Each streamed chat chunk becomes a run event: the
// first chunk starts the run, text deltas become content, the finish
// reason closes the content span and the trailing usage chunk completes
// the run.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/run"
)

// Config holds the settings for the OpenAI agent.
type Config struct {
	// BaseURL of the API, e.g. "https://api.openai.com/v1". Empty uses the
	// SDK default.
	BaseURL string
	// APIKey sent as a bearer token.
	APIKey string
	// MaxRetries for the initial request. Zero disables retries.
	MaxRetries int
	// MaxTokens caps the completion. Zero leaves it to the backend.
	MaxTokens int64
	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Agent drives the Chat Completions streaming API.
type Agent struct {
	client openai.Client
	cfg    Config
	now    func() time.Time
}

var _ agent.Agent = (*Agent)(nil)

// New creates an OpenAI agent.
func New(cfg Config) *Agent {
	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(withTrailingSlash(cfg.BaseURL)))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Agent{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Name returns "openai".
func (a *Agent) Name() string { return "openai" }

// Close is a no-op; the SDK client holds no resources of its own.
func (a *Agent) Close() error { return nil }

// Run opens a streaming chat completion and adapts it to run events.
func (a *Agent) Run(ctx context.Context, req *agent.Request) (run.Source, error) {
	params := a.buildParams(req)
	debug.Log("agent", "openai run", "model", req.Model, "messages", len(req.Messages))

	return run.Stream(ctx, func(ctx context.Context, emit run.EmitFunc) error {
		stream := a.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		started := false
		open := false
		var usage *run.Metrics

		for stream.Next() {
			chunk := stream.Current()
			if !started {
				started = true
				createdAt := chunk.Created
				if createdAt == 0 {
					createdAt = a.now().Unix()
				}
				if err := emit(run.Started{RunID: chunk.ID, CreatedAt: createdAt}); err != nil {
					return err
				}
			}
			if m := metricsFromUsage(chunk.Usage); m != nil {
				usage = m
			}
			for _, ch := range chunk.Choices {
				if ch.Delta.Content != "" {
					open = true
					if err := emit(run.Content{ContentType: run.ContentTypeText, Content: ch.Delta.Content}); err != nil {
						return err
					}
				}
				if ch.FinishReason != "" && open {
					open = false
					if err := emit(run.ContentCompleted{}); err != nil {
						return err
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("openai streaming error: %w", err)
		}
		if !started {
			return fmt.Errorf("openai stream ended without any chunk")
		}
		if open {
			if err := emit(run.ContentCompleted{}); err != nil {
				return err
			}
		}
		return emit(run.Completed{Metrics: usage})
	}), nil
}

func (a *Agent) buildParams(req *agent.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:    buildMessages(req.Messages),
		Model:       req.Model,
		Temperature: openai.Float(req.Temperature),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if a.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(a.cfg.MaxTokens)
	}
	return params
}

func buildMessages(msgs []agent.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text()
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case agent.RoleDeveloper:
			out = append(out, openai.DeveloperMessage(text))
		case agent.RoleAssistant:
			out = append(out, openai.AssistantMessage(text))
		default:
			out = append(out, openai.UserMessage(text))
		}
	}
	return out
}

func metricsFromUsage(u openai.CompletionUsage) *run.Metrics {
	if u.TotalTokens == 0 && u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return nil
	}
	m := &run.Metrics{
		InputTokens:  int(u.PromptTokens),
		OutputTokens: int(u.CompletionTokens),
		TotalTokens:  int(u.TotalTokens),
	}
	if cached := int(u.PromptTokensDetails.CachedTokens); cached > 0 {
		m.CacheReadTokens = &cached
	}
	return m
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
