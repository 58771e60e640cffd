// Package transport defines the handler interfaces and middleware chain for
// the strom HTTP/SSE transport layer.
//
// The transport layer bridges external clients and the translation engine.
// It decodes incoming requests into the types defined in pkg/api,
// dispatches them for processing, and serializes the result back to the
// client either as a single JSON response or as a stream of SSE frames
// terminated by the [DONE] sentinel.
//
// ResponseCreator is the contract between the transport layer and the
// engine. ResponseWriter abstracts streaming and non-streaming output so
// the engine can emit frames without knowing the wire protocol.
//
// # Middleware
//
// The middleware chain wraps ResponseCreator with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
package transport
