package run

import (
	"encoding/json"
	"fmt"
)

// Event names used on the wire by agent runtimes. Both the CamelCase names
// and the snake_case kinds are accepted.
const (
	NameRunStarted          = "RunStarted"
	NameRunContent          = "RunContent"
	NameRunContentCompleted = "RunContentCompleted"
	NameRunCompleted        = "RunCompleted"
)

type startedPayload struct {
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"`
}

type contentPayload struct {
	ContentType string `json:"content_type"`
	Content     any    `json:"content"`
}

type completedPayload struct {
	Metrics *Metrics `json:"metrics"`
}

// Decode turns a named event with a JSON payload into an Event. Unrecognized
// names yield Unknown, not an error; only malformed payloads of recognized
// events fail. An empty name is read from the payload's "event" field.
func Decode(name string, data []byte) (Event, error) {
	if name == "" {
		var envelope struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("decoding event name: %w", err)
		}
		name = envelope.Event
	}

	switch name {
	case NameRunStarted, string(KindStarted):
		var p startedPayload
		if err := unmarshalPayload(data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		return Started{RunID: p.RunID, CreatedAt: p.CreatedAt}, nil

	case NameRunContent, string(KindContent):
		var p contentPayload
		if err := unmarshalPayload(data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		if p.ContentType == "" {
			p.ContentType = ContentTypeText
		}
		return Content{ContentType: p.ContentType, Content: p.Content}, nil

	case NameRunContentCompleted, string(KindContentCompleted):
		return ContentCompleted{}, nil

	case NameRunCompleted, string(KindCompleted):
		var p completedPayload
		if err := unmarshalPayload(data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		return Completed{Metrics: p.Metrics}, nil
	}

	return Unknown{Name: name}, nil
}

func unmarshalPayload(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
