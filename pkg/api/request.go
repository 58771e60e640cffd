package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Message roles accepted on input.
const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
)

// Content types accepted inside an input message content list.
const (
	ContentTypeInputText  = "input_text"
	ContentTypeOutputText = "output_text"
)

// CreateResponseRequest is the body of POST /v1/responses. Unknown fields
// are rejected at decode time.
type CreateResponseRequest struct {
	Input        *Input   `json:"input,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
	Model        string   `json:"model,omitempty"`
	Stream       *bool    `json:"stream,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// IsStream reports whether the client asked for an SSE stream. Absent
// means false.
func (r *CreateResponseRequest) IsStream() bool {
	return r.Stream != nil && *r.Stream
}

// Input is either a bare string (Text) or a list of messages.
type Input struct {
	Text     *string
	Messages []InputMessage
}

// UnmarshalJSON accepts a JSON string or an array of messages.
func (in *Input) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		in.Text = &s
		return nil
	case '[':
		msgs, err := decodeStrict[[]InputMessage](data)
		if err != nil {
			return err
		}
		if msgs == nil {
			msgs = []InputMessage{}
		}
		in.Messages = msgs
		return nil
	}
	return errors.New("input must be a string or an array of messages")
}

// MarshalJSON writes back whichever form was decoded.
func (in Input) MarshalJSON() ([]byte, error) {
	if in.Text != nil {
		return json.Marshal(*in.Text)
	}
	if in.Messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(in.Messages)
}

// InputMessage is one message of a list input.
type InputMessage struct {
	Content MessageContent `json:"content"`
	Role    string         `json:"role"`
	Type    *string        `json:"type,omitempty"`
}

// MessageContent is either a bare string or a list of text content parts.
type MessageContent struct {
	Text  *string
	Parts []TextContent
}

// UnmarshalJSON accepts a JSON string or an array of text parts.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.Text = &s
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		parts, err := decodeStrict[[]TextContent](data)
		if err != nil {
			return err
		}
		if parts == nil {
			parts = []TextContent{}
		}
		c.Parts = parts
		return nil
	}
	return errors.New("content must be a string or an array of text parts")
}

// MarshalJSON writes back whichever form was decoded.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Text != nil {
		return json.Marshal(*c.Text)
	}
	if c.Parts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Parts)
}

// TextContent is one text part of an input message.
type TextContent struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// DecodeCreateRequest decodes a request body, rejecting unknown fields at
// every level and trailing data.
func DecodeCreateRequest(data []byte) (*CreateResponseRequest, error) {
	req, err := decodeStrict[CreateResponseRequest](data)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeStrict[T any](data []byte) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if dec.More() {
		return v, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}
