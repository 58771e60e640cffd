package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/run"
)

const defaultModel = "mock-model"

type handlers struct {
	delay time.Duration
}

// --- Chat Completions ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatMessage accepts both string content and an array of text parts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

func (m chatMessage) text() string {
	switch v := m.Content.(type) {
	case string:
		return v
	case []any:
		var s string
		for _, part := range v {
			if p, ok := part.(map[string]any); ok {
				if t, ok := p["text"].(string); ok {
					s += t
				}
			}
		}
		return s
	}
	return ""
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int        `json:"index"`
	Message      *chatDelta `json:"message,omitempty"`
	Delta        *chatDelta `json:"delta,omitempty"`
	FinishReason *string    `json:"finish_reason"`
}

type chatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (h *handlers) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: "+err.Error())
		return
	}
	if req.Model == "" {
		req.Model = defaultModel
	}

	turns := make([]turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		turns = append(turns, turn{Role: m.Role, Text: m.text()})
	}
	p := reply(turns)
	if p.Fail {
		writeError(w, http.StatusInternalServerError, "server_error", "scripted failure")
		return
	}

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	usage := &chatUsage{
		PromptTokens:     p.InputTokens,
		CompletionTokens: p.OutputTokens(),
		TotalTokens:      p.InputTokens + p.OutputTokens(),
	}

	if !req.Stream {
		stop := "stop"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			ID:      id,
			Object:  "chat.completion",
			Created: created,
			Model:   req.Model,
			Choices: []chatChoice{{Message: &chatDelta{Role: "assistant", Content: p.Text()}, FinishReason: &stop}},
			Usage:   usage,
		})
		return
	}

	sw, ok := newStreamWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming not supported")
		return
	}
	chunk := func(delta *chatDelta, finish *string, u *chatUsage) chatResponse {
		c := chatResponse{ID: id, Object: "chat.completion.chunk", Created: created, Model: req.Model, Usage: u}
		if delta != nil {
			c.Choices = []chatChoice{{Delta: delta, FinishReason: finish}}
		} else {
			c.Choices = []chatChoice{}
		}
		return c
	}

	if err := sw.data(chunk(&chatDelta{Role: "assistant"}, nil, nil)); err != nil {
		return
	}
	for i, c := range p.Chunks {
		if i > 0 && !h.pause(r) {
			return
		}
		if err := sw.data(chunk(&chatDelta{Content: c}, nil, nil)); err != nil {
			return
		}
		if p.Truncate {
			abort(r)
		}
	}
	stop := "stop"
	if err := sw.data(chunk(&chatDelta{}, &stop, nil)); err != nil {
		return
	}
	if err := sw.data(chunk(nil, nil, usage)); err != nil {
		return
	}
	sw.done()
}

// --- Run events ---

func (h *handlers) runs(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: "+err.Error())
		return
	}

	turns := make([]turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		turns = append(turns, turn{Role: m.Role, Text: m.Text()})
	}
	p := reply(turns)
	if p.Fail {
		writeError(w, http.StatusInternalServerError, "server_error", "scripted failure")
		return
	}

	sw, ok := newStreamWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming not supported")
		return
	}

	started := map[string]any{"run_id": "run_" + uuid.NewString(), "created_at": time.Now().Unix()}
	if err := sw.event(run.NameRunStarted, started); err != nil {
		return
	}
	for i, c := range p.Chunks {
		if i > 0 && !h.pause(r) {
			return
		}
		if err := sw.event(run.NameRunContent, map[string]any{"content": c, "content_type": run.ContentTypeText}); err != nil {
			return
		}
		if p.Truncate {
			abort(r)
		}
	}
	if err := sw.event(run.NameRunContentCompleted, struct{}{}); err != nil {
		return
	}
	metrics := run.Metrics{
		InputTokens:  p.InputTokens,
		OutputTokens: p.OutputTokens(),
		TotalTokens:  p.InputTokens + p.OutputTokens(),
	}
	if err := sw.event(run.NameRunCompleted, map[string]any{"metrics": metrics}); err != nil {
		return
	}
	sw.done()
}

// --- Models ---

func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": defaultModel, "object": "model", "owned_by": "strom-mock"},
		},
	})
}

// --- Helpers ---

// pause sleeps between chunks and reports whether the client is still there.
func (h *handlers) pause(r *http.Request) bool {
	if h.delay <= 0 {
		return r.Context().Err() == nil
	}
	select {
	case <-time.After(h.delay):
		return true
	case <-r.Context().Done():
		return false
	}
}

// abort drops the connection without finishing the response body.
func abort(r *http.Request) {
	slog.Info("dropping stream on request", "path", r.URL.Path)
	panic(http.ErrAbortHandler)
}

func writeError(w http.ResponseWriter, status int, typ, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"type": typ, "message": message},
	})
}

type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newStreamWriter(w http.ResponseWriter) (*streamWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &streamWriter{w: w, flusher: flusher}, true
}

func (s *streamWriter) data(v any) error {
	return s.event("", v)
}

func (s *streamWriter) event(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *streamWriter) done() {
	fmt.Fprintf(s.w, "data: %s\n\n", api.DoneSentinel)
	s.flusher.Flush()
}
