package engine

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/strom/pkg/api"
)

type partState int

const (
	partNew partState = iota
	partStreaming
	partDone
	partClosed
)

// TextPart is one output_text content part of an OutputItem. It moves
// through added, streaming, done and closed; each step returns the frame
// that announces it. Once closed the part is immutable and its snapshot is
// part of the owning item's content.
type TextPart struct {
	item  *OutputItem
	index int
	text  string
	state partState
}

// Index returns the part's content_index.
func (p *TextPart) Index() int { return p.index }

// Text returns the text accumulated so far.
func (p *TextPart) Text() string { return p.text }

// Open returns the content_part.added frame with an empty placeholder part.
func (p *TextPart) Open() (api.StreamEvent, error) {
	if p.state != partNew {
		return api.StreamEvent{}, fmt.Errorf("content part %d already opened", p.index)
	}
	p.state = partStreaming
	return p.frame(api.EventContentPartAdded, func(ev *api.StreamEvent) {
		ev.Part = &api.OutputTextPart{Type: api.PartTypeOutputText}
	}), nil
}

// Append adds delta to the buffer and returns the output_text.delta frame.
func (p *TextPart) Append(delta string) (api.StreamEvent, error) {
	if p.state != partStreaming {
		return api.StreamEvent{}, fmt.Errorf("content part %d is not streaming", p.index)
	}
	p.text += delta
	return p.frame(api.EventOutputTextDelta, func(ev *api.StreamEvent) {
		ev.Delta = delta
	}), nil
}

// Finalize returns the output_text.done frame. A non-nil text replaces the
// accumulated buffer; nil keeps it.
func (p *TextPart) Finalize(text *string) (api.StreamEvent, error) {
	if p.state != partStreaming {
		return api.StreamEvent{}, fmt.Errorf("content part %d is not streaming", p.index)
	}
	if text != nil {
		p.text = *text
	}
	p.state = partDone
	return p.frame(api.EventOutputTextDone, func(ev *api.StreamEvent) {
		ev.Text = p.text
	}), nil
}

// Close returns the content_part.done frame and registers the final part
// with the owning item.
func (p *TextPart) Close() (api.StreamEvent, error) {
	if p.state != partDone {
		return api.StreamEvent{}, fmt.Errorf("content part %d closed before it was finalized", p.index)
	}
	p.state = partClosed
	snap := p.snapshot()
	p.item.registerPart(p, snap)
	return p.frame(api.EventContentPartDone, func(ev *api.StreamEvent) {
		ev.Part = &snap
	}), nil
}

func (p *TextPart) snapshot() api.OutputTextPart {
	return api.OutputTextPart{
		Annotations: []json.RawMessage{},
		Text:        p.text,
		Type:        api.PartTypeOutputText,
	}
}

func (p *TextPart) frame(typ api.StreamEventType, fill func(*api.StreamEvent)) api.StreamEvent {
	ev := api.StreamEvent{
		Type:           typ,
		ItemID:         p.item.id,
		OutputIndex:    p.item.outputIndex,
		ContentIndex:   p.index,
		SequenceNumber: p.item.seq.Next(),
	}
	fill(&ev)
	return ev
}
