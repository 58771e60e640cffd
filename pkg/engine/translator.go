package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/run"
)

// FrameSink receives the frames of one response in order. WriteEvent must
// not return before the frame was handed to the transport; a returned
// error means the client is gone.
type FrameSink interface {
	WriteEvent(ctx context.Context, event api.StreamEvent) error
	WriteDone(ctx context.Context) error
}

// State is the translator's position in the run lifecycle.
type State int

const (
	StateAwaitingStart State = iota
	StateStreamingItem
	StateAwaitingCompletion
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateStreamingItem:
		return "streaming_item"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithItemIDs replaces the output item id generator.
func WithItemIDs(newID func() string) TranslatorOption {
	return func(t *Translator) { t.newID = newID }
}

// WithLogger sets the logger used for failure reports.
func WithLogger(l *slog.Logger) TranslatorOption {
	return func(t *Translator) { t.logger = l }
}

// Translator turns the run events of one agent execution into the frames
// of one streaming response. It is driven by a single goroutine and is not
// safe for concurrent use.
type Translator struct {
	model  string
	sink   FrameSink
	newID  func() string
	logger *slog.Logger

	state   State
	resp    *ResponseStream
	item    *OutputItem
	written int
	err     error
}

// NewTranslator returns a translator that reports model in every response
// snapshot and writes frames to sink.
func NewTranslator(model string, sink FrameSink, opts ...TranslatorOption) *Translator {
	t := &Translator{
		model:  model,
		sink:   sink,
		newID:  api.NewMessageID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current state.
func (t *Translator) State() State { return t.state }

// Err returns the error that moved the translator to StateFailed.
func (t *Translator) Err() error { return t.err }

// FramesWritten returns how many frames the sink accepted, not counting
// the terminal sentinel.
func (t *Translator) FramesWritten() int { return t.written }

// Response returns the current response snapshot, or nil before
// run_started was handled.
func (t *Translator) Response() *api.Response {
	if t.resp == nil {
		return nil
	}
	return t.resp.Snapshot()
}

// Run pulls events from src until the run completes or fails, and closes
// src before returning. It returns nil once the response.completed frame
// and the sentinel were written.
func (t *Translator) Run(ctx context.Context, src run.Source) error {
	defer src.Close()

	for t.state != StateDone {
		if t.state == StateFailed {
			return t.err
		}
		if err := ctx.Err(); err != nil {
			return t.fail(transportFailure("context cancelled", err))
		}
		ev, err := src.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return t.fail(transportFailure("context cancelled", ctx.Err()))
			case errors.Is(err, io.EOF):
				return t.fail(exhausted("source ended in state "+t.state.String(), nil))
			default:
				return t.fail(exhausted("source failed in state "+t.state.String(), err))
			}
		}
		if err := t.Handle(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Handle applies one run event. Once the translator has failed or is done,
// every further event is rejected and no frame is written.
func (t *Translator) Handle(ctx context.Context, ev run.Event) error {
	switch t.state {
	case StateFailed:
		return t.err
	case StateDone:
		return violation("%s after the run completed", kindOf(ev))
	}

	debug.Log("streaming", "run event", "kind", kindOf(ev), "state", t.state.String())

	switch e := ev.(type) {
	case run.Started:
		return t.started(ctx, e)
	case run.Content:
		return t.content(ctx, e)
	case run.ContentCompleted:
		return t.contentCompleted(ctx)
	case run.Completed:
		return t.completed(ctx, e)
	case run.Unknown:
		return t.fail(violation("unknown event %q", e.Name))
	case nil:
		return t.fail(violation("nil event"))
	}
	return t.fail(violation("unsupported event %T", ev))
}

func (t *Translator) started(ctx context.Context, e run.Started) error {
	if t.state != StateAwaitingStart {
		return t.fail(violation("run_started in state %s", t.state))
	}
	id := e.RunID
	if id == "" {
		id = api.NewResponseID()
	}
	t.resp = NewResponseStream(id, e.CreatedAt, t.model)
	t.resp.newID = t.newID
	t.state = StateStreamingItem

	if err := t.write(ctx, t.resp.Created()); err != nil {
		return err
	}
	t.item = t.resp.AddOutputItem()
	added, err := t.item.Open()
	if err != nil {
		return t.fail(violation("%v", err))
	}
	return t.write(ctx, added)
}

func (t *Translator) content(ctx context.Context, e run.Content) error {
	if t.state != StateStreamingItem {
		return t.fail(violation("run_content in state %s", t.state))
	}
	if e.Content == nil {
		return t.fail(violation("run_content without content"))
	}
	text, ok := e.Text()
	if !ok {
		return t.fail(violation("run_content of type %q is not text", e.ContentType))
	}
	if text == "" {
		return nil
	}

	part := t.item.OpenPart()
	if part == nil {
		p, err := t.item.NewTextPart()
		if err != nil {
			return t.fail(violation("%v", err))
		}
		added, err := p.Open()
		if err != nil {
			return t.fail(violation("%v", err))
		}
		if err := t.write(ctx, added); err != nil {
			return err
		}
		part = p
	}
	delta, err := part.Append(text)
	if err != nil {
		return t.fail(violation("%v", err))
	}
	return t.write(ctx, delta)
}

func (t *Translator) contentCompleted(ctx context.Context) error {
	if t.state != StateStreamingItem {
		return t.fail(violation("run_content_completed in state %s", t.state))
	}
	part := t.item.OpenPart()
	if part == nil {
		return t.fail(violation("run_content_completed with no open content part"))
	}
	done, err := part.Finalize(nil)
	if err != nil {
		return t.fail(violation("%v", err))
	}
	if err := t.write(ctx, done); err != nil {
		return err
	}
	closed, err := part.Close()
	if err != nil {
		return t.fail(violation("%v", err))
	}
	return t.write(ctx, closed)
}

func (t *Translator) completed(ctx context.Context, e run.Completed) error {
	if t.state != StateStreamingItem {
		return t.fail(violation("run_completed in state %s", t.state))
	}
	if part := t.item.OpenPart(); part != nil {
		return t.fail(violation("run_completed with content part %d still open", part.Index()))
	}
	t.state = StateAwaitingCompletion

	itemDone, err := t.item.Close()
	if err != nil {
		return t.fail(violation("%v", err))
	}
	if err := t.write(ctx, itemDone); err != nil {
		return err
	}
	completed, err := t.resp.Complete(e.Metrics)
	if err != nil {
		return t.fail(violation("%v", err))
	}
	if err := t.write(ctx, completed); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return t.fail(transportFailure("context cancelled", err))
	}
	if err := t.sink.WriteDone(ctx); err != nil {
		return t.fail(transportFailure("write sentinel", err))
	}
	t.state = StateDone
	return nil
}

func (t *Translator) write(ctx context.Context, ev api.StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return t.fail(transportFailure("context cancelled", err))
	}
	if err := t.sink.WriteEvent(ctx, ev); err != nil {
		return t.fail(transportFailure("write "+string(ev.Type), err))
	}
	t.written++
	return nil
}

func (t *Translator) fail(err *StreamError) error {
	prev := t.state
	t.state = StateFailed
	t.err = err
	t.logger.Debug("stream translation failed",
		"kind", FailureKind(err),
		"state", prev.String(),
		"frames_written", t.written,
		"error", err.Error(),
	)
	return err
}

func kindOf(ev run.Event) string {
	if ev == nil {
		return "<nil>"
	}
	return string(ev.Kind())
}
