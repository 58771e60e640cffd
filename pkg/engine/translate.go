package engine

import (
	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/api"
)

// translateRequest converts a validated CreateResponseRequest into the
// agent's run request. Instructions become a leading system message and a
// string input becomes a single user message.
func translateRequest(req *api.CreateResponseRequest, cfg Config) *agent.Request {
	ar := &agent.Request{
		Model:       req.Model,
		Stream:      req.IsStream(),
		Temperature: cfg.temperature(),
	}
	if req.Temperature != nil {
		ar.Temperature = *req.Temperature
	}

	if req.Instructions != nil {
		ar.Messages = append(ar.Messages, agent.TextMessage(agent.RoleSystem, *req.Instructions))
	}

	if req.Input == nil {
		return ar
	}
	if req.Input.Text != nil {
		ar.Messages = append(ar.Messages, agent.TextMessage(agent.RoleUser, *req.Input.Text))
		return ar
	}
	for _, m := range req.Input.Messages {
		ar.Messages = append(ar.Messages, translateMessage(m))
	}
	return ar
}

func translateMessage(m api.InputMessage) agent.Message {
	msg := agent.Message{Role: m.Role}
	if m.Content.Text != nil {
		msg.Content = []agent.Part{{Type: agent.PartTypeText, Text: *m.Content.Text}}
		return msg
	}
	msg.Content = make([]agent.Part, 0, len(m.Content.Parts))
	for _, p := range m.Content.Parts {
		msg.Content = append(msg.Content, agent.Part{Type: agent.PartTypeText, Text: p.Text})
	}
	return msg
}
