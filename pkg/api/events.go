package api

import (
	"encoding/json"
	"fmt"
)

// DoneSentinel is the literal payload of the frame that terminates a
// successful stream.
const DoneSentinel = "[DONE]"

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

// Lifecycle events bracket the whole response.
const (
	EventResponseCreated   StreamEventType = "response.created"
	EventResponseCompleted StreamEventType = "response.completed"
)

// Item and content events are emitted while an output item streams.
const (
	EventOutputItemAdded  StreamEventType = "response.output_item.added"
	EventContentPartAdded StreamEventType = "response.content_part.added"
	EventOutputTextDelta  StreamEventType = "response.output_text.delta"
	EventOutputTextDone   StreamEventType = "response.output_text.done"
	EventContentPartDone  StreamEventType = "response.content_part.done"
	EventOutputItemDone   StreamEventType = "response.output_item.done"
)

// StreamEvent is one frame of a streaming response. Which fields are
// meaningful depends on Type; MarshalJSON emits exactly the field set of
// that frame type.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	Response       *Response       `json:"response,omitempty"`
	Item           *OutputItem     `json:"item,omitempty"`
	Part           *OutputTextPart `json:"part,omitempty"`
	ItemID         string          `json:"item_id,omitempty"`
	OutputIndex    int             `json:"output_index"`
	ContentIndex   int             `json:"content_index"`
	Delta          string          `json:"delta,omitempty"`
	Text           string          `json:"text,omitempty"`
}

// noLogprobs is serialized as the always-empty logprobs array of text frames.
var noLogprobs = []json.RawMessage{}

// MarshalJSON encodes the frame with the per-type field order used by the
// Responses API.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventResponseCreated, EventResponseCompleted:
		return json.Marshal(struct {
			Response       *Response       `json:"response"`
			SequenceNumber int             `json:"sequence_number"`
			Type           StreamEventType `json:"type"`
		}{e.Response, e.SequenceNumber, e.Type})

	case EventOutputItemAdded, EventOutputItemDone:
		return json.Marshal(struct {
			Item           *OutputItem     `json:"item"`
			OutputIndex    int             `json:"output_index"`
			SequenceNumber int             `json:"sequence_number"`
			Type           StreamEventType `json:"type"`
		}{e.Item, e.OutputIndex, e.SequenceNumber, e.Type})

	case EventContentPartAdded, EventContentPartDone:
		return json.Marshal(struct {
			ContentIndex   int             `json:"content_index"`
			ItemID         string          `json:"item_id"`
			OutputIndex    int             `json:"output_index"`
			Part           *OutputTextPart `json:"part"`
			SequenceNumber int             `json:"sequence_number"`
			Type           StreamEventType `json:"type"`
		}{e.ContentIndex, e.ItemID, e.OutputIndex, e.Part, e.SequenceNumber, e.Type})

	case EventOutputTextDelta:
		return json.Marshal(struct {
			ContentIndex   int               `json:"content_index"`
			Delta          string            `json:"delta"`
			ItemID         string            `json:"item_id"`
			Logprobs       []json.RawMessage `json:"logprobs"`
			OutputIndex    int               `json:"output_index"`
			SequenceNumber int               `json:"sequence_number"`
			Type           StreamEventType   `json:"type"`
		}{e.ContentIndex, e.Delta, e.ItemID, noLogprobs, e.OutputIndex, e.SequenceNumber, e.Type})

	case EventOutputTextDone:
		return json.Marshal(struct {
			ContentIndex   int               `json:"content_index"`
			ItemID         string            `json:"item_id"`
			Logprobs       []json.RawMessage `json:"logprobs"`
			OutputIndex    int               `json:"output_index"`
			SequenceNumber int               `json:"sequence_number"`
			Text           string            `json:"text"`
			Type           StreamEventType   `json:"type"`
		}{e.ContentIndex, e.ItemID, noLogprobs, e.OutputIndex, e.SequenceNumber, e.Text, e.Type})
	}
	return nil, fmt.Errorf("api: unknown stream event type %q", e.Type)
}
