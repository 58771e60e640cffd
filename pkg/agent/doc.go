// Package agent defines the interface between the gateway and the agent
// runtimes that actually generate text.
//
// An Agent receives a normalized [Request] and returns a run.Source that
// yields the run lifecycle events (started, content chunks, content
// completed, completed). Adapters live in subpackages: openai and anthropic
// drive hosted model APIs directly, remote consumes an agent service that
// already speaks run events over SSE, and echo is a deterministic backend
// for development and tests.
package agent
