// Package echo implements a deterministic agent that streams the last user
// message back word by word. It needs no credentials and is the default
// backend for local development and end-to-end tests.
package echo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/run"
)

// Config controls the echo agent.
type Config struct {
	// Prefix is prepended to the echoed text.
	Prefix string
	// Delay is slept between content chunks.
	Delay time.Duration
}

// Agent echoes its input.
type Agent struct {
	cfg Config
	now func() time.Time
}

var _ agent.Agent = (*Agent)(nil)

// New creates an echo agent.
func New(cfg Config) *Agent {
	return &Agent{cfg: cfg, now: time.Now}
}

// Name returns "echo".
func (a *Agent) Name() string { return "echo" }

// Close is a no-op.
func (a *Agent) Close() error { return nil }

// Run streams the reply as one content span.
func (a *Agent) Run(ctx context.Context, req *agent.Request) (run.Source, error) {
	reply := a.cfg.Prefix + req.LastUserText()
	chunks := Chunk(reply)

	input := 0
	for _, m := range req.Messages {
		input += len(strings.Fields(m.Text()))
	}
	output := len(strings.Fields(reply))

	runID := "run_" + uuid.NewString()
	createdAt := a.now().Unix()

	return run.Stream(ctx, func(ctx context.Context, emit run.EmitFunc) error {
		if err := emit(run.Started{RunID: runID, CreatedAt: createdAt}); err != nil {
			return err
		}
		for i, c := range chunks {
			if i > 0 && a.cfg.Delay > 0 {
				select {
				case <-time.After(a.cfg.Delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err := emit(run.Content{ContentType: run.ContentTypeText, Content: c}); err != nil {
				return err
			}
		}
		if len(chunks) > 0 {
			if err := emit(run.ContentCompleted{}); err != nil {
				return err
			}
		}
		return emit(run.Completed{Metrics: &run.Metrics{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		}})
	}), nil
}

// Chunk splits s into word chunks that keep their trailing whitespace, so
// concatenating the chunks yields s again.
func Chunk(s string) []string {
	var chunks []string
	start := 0
	inSpace := false
	for i, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n'
		if inSpace && !isSpace {
			chunks = append(chunks, s[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(s) {
		chunks = append(chunks, s[start:])
	}
	return chunks
}
