package engine

import (
	"testing"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/api"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func TestTranslateRequest_Instructions(t *testing.T) {
	req := &api.CreateResponseRequest{
		Model:        "test-model",
		Instructions: strPtr("You are a helpful assistant."),
		Input:        &api.Input{Text: strPtr("Hello")},
	}

	ar := translateRequest(req, Config{})

	if ar.Model != "test-model" {
		t.Errorf("expected model %q, got %q", "test-model", ar.Model)
	}
	if len(ar.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ar.Messages))
	}
	if ar.Messages[0].Role != agent.RoleSystem {
		t.Errorf("expected role %q, got %q", agent.RoleSystem, ar.Messages[0].Role)
	}
	if got := ar.Messages[0].Text(); got != "You are a helpful assistant." {
		t.Errorf("expected instructions content, got %q", got)
	}
	if ar.Messages[1].Role != agent.RoleUser || ar.Messages[1].Text() != "Hello" {
		t.Errorf("unexpected user message: %+v", ar.Messages[1])
	}
}

func TestTranslateRequest_StringInput(t *testing.T) {
	req := &api.CreateResponseRequest{Input: &api.Input{Text: strPtr("Hi")}}

	ar := translateRequest(req, Config{})

	if len(ar.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ar.Messages))
	}
	want := agent.TextMessage(agent.RoleUser, "Hi")
	got := ar.Messages[0]
	if got.Role != want.Role || len(got.Content) != 1 || got.Content[0] != want.Content[0] {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTranslateRequest_MessageParts(t *testing.T) {
	req := &api.CreateResponseRequest{
		Input: &api.Input{Messages: []api.InputMessage{
			{Role: "user", Content: api.MessageContent{Text: strPtr("first")}},
			{Role: "assistant", Content: api.MessageContent{Parts: []api.TextContent{
				{Type: api.ContentTypeOutputText, Text: "a"},
				{Type: api.ContentTypeOutputText, Text: "b"},
			}}},
		}},
	}

	ar := translateRequest(req, Config{})

	if len(ar.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ar.Messages))
	}
	second := ar.Messages[1]
	if second.Role != "assistant" {
		t.Errorf("role = %q, want assistant", second.Role)
	}
	if len(second.Content) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(second.Content))
	}
	for i, p := range second.Content {
		if p.Type != agent.PartTypeText {
			t.Errorf("part %d type = %q, want %q", i, p.Type, agent.PartTypeText)
		}
	}
	if second.Text() != "ab" {
		t.Errorf("text = %q, want %q", second.Text(), "ab")
	}
}

func TestTranslateRequest_Defaults(t *testing.T) {
	ar := translateRequest(&api.CreateResponseRequest{}, Config{})

	if ar.Stream {
		t.Error("stream should default to false")
	}
	if ar.Temperature != 1.0 {
		t.Errorf("temperature = %v, want 1.0", ar.Temperature)
	}
	if len(ar.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(ar.Messages))
	}
}

func TestTranslateRequest_Overrides(t *testing.T) {
	tests := []struct {
		name     string
		req      *api.CreateResponseRequest
		cfg      Config
		wantTemp float64
		wantSSE  bool
	}{
		{"config default", &api.CreateResponseRequest{}, Config{DefaultTemperature: 0.3}, 0.3, false},
		{"request wins", &api.CreateResponseRequest{Temperature: floatPtr(0.7)}, Config{DefaultTemperature: 0.3}, 0.7, false},
		{"explicit zero", &api.CreateResponseRequest{Temperature: floatPtr(0)}, Config{}, 0, false},
		{"stream", &api.CreateResponseRequest{Stream: boolPtr(true)}, Config{}, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ar := translateRequest(tt.req, tt.cfg)
			if ar.Temperature != tt.wantTemp {
				t.Errorf("temperature = %v, want %v", ar.Temperature, tt.wantTemp)
			}
			if ar.Stream != tt.wantSSE {
				t.Errorf("stream = %v, want %v", ar.Stream, tt.wantSSE)
			}
		})
	}
}
