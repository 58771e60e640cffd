// Package api defines the OpenResponses wire types produced by the strom
// gateway.
//
// The package covers the response object and its output items, the
// streaming frame envelope, the inbound create request and the error
// payloads. All JSON encodings mirror the field order and null/empty
// conventions of the OpenAI Responses API so that stock client libraries
// parse the stream without special casing.
//
// Core types:
//   - [Response]: the response snapshot carried by created/completed frames
//   - [OutputItem]: an assistant message with ordered content parts
//   - [OutputTextPart]: one output_text content part
//   - [StreamEvent]: a single SSE frame
//   - [CreateResponseRequest]: the client request for POST /v1/responses
//   - [APIError]: structured error with type, code, param and message
package api
