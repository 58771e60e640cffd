package main

import (
	"strings"

	"github.com/rhuss/strom/pkg/agent/echo"
)

// Reply texts.
const (
	textDefault = "Hello, nice day!"
	textCount   = "1, 2, 3, 4, 5"
	textPirate  = "Ahoy there, matey! Welcome aboard!"
)

// Trigger phrases in the last user message.
const (
	triggerFail     = "please fail"
	triggerTruncate = "please truncate"
	triggerCount    = "count from 1 to 5"
	triggerEcho     = "echo:"
)

// plan is the scripted outcome for one request.
type plan struct {
	// Fail answers with HTTP 500 before streaming.
	Fail bool
	// Truncate drops the stream after the first chunk.
	Truncate bool
	Chunks   []string
	// InputTokens counts the words of every message.
	InputTokens int
}

func (p plan) Text() string { return strings.Join(p.Chunks, "") }

func (p plan) OutputTokens() int { return len(p.Chunks) }

// turn is the protocol-neutral view of one message.
type turn struct {
	Role string
	Text string
}

// reply picks the scripted answer for a conversation.
func reply(turns []turn) plan {
	var p plan
	last := ""
	hasSystem := false
	for _, t := range turns {
		p.InputTokens += len(strings.Fields(t.Text))
		switch t.Role {
		case "user":
			last = t.Text
		case "system", "developer":
			hasSystem = true
		}
	}

	lower := strings.ToLower(last)
	text := textDefault
	switch {
	case strings.Contains(lower, triggerFail):
		p.Fail = true
		return p
	case strings.Contains(lower, triggerTruncate):
		p.Truncate = true
	case strings.HasPrefix(lower, triggerEcho):
		text = strings.TrimSpace(last[len(triggerEcho):])
	case strings.Contains(lower, triggerCount):
		text = textCount
	case hasSystem:
		text = textPirate
	}
	p.Chunks = echo.Chunk(text)
	return p
}
