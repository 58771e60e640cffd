package agent

import (
	"context"
	"strings"

	"github.com/rhuss/strom/pkg/run"
)

// Agent abstracts an agent runtime. Implementations must be safe for
// concurrent use by multiple goroutines.
type Agent interface {
	// Name returns the adapter identifier (e.g., "openai", "echo").
	Name() string

	// Run starts one run. The returned Source yields the run's events and
	// must be closed by the caller. Errors returned here happen before any
	// event was produced (bad credentials, unreachable backend).
	Run(ctx context.Context, req *Request) (run.Source, error)

	// Close releases adapter resources (HTTP clients, connections).
	Close() error
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PartTypeText is the only content part type agents receive.
const PartTypeText = "text"

// Request is a normalized run request. Instructions have already been
// folded into a leading system message.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"input"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content []Part `json:"content"`
}

// Part is one text fragment of a message.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text joins the message's text parts.
func (m Message) Text() string {
	if len(m.Content) == 1 {
		return m.Content[0].Text
	}
	var b strings.Builder
	for _, p := range m.Content {
		b.WriteString(p.Text)
	}
	return b.String()
}

// TextMessage builds a single-part message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []Part{{Type: PartTypeText, Text: text}}}
}

// LastUserText returns the text of the last user message, or "".
func (r *Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Text()
		}
	}
	return ""
}
