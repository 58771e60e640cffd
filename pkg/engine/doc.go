// Package engine turns an agent run into an OpenResponses response.
//
// The core is the [Translator], a strict state machine that consumes run
// events one at a time and emits response frames in protocol order:
// response.created, output_item.added, then for every content span a
// content_part.added, one output_text.delta per chunk, output_text.done and
// content_part.done, and finally output_item.done, response.completed and
// the [DONE] sentinel. Sequence numbers, output indexes and content indexes
// are owned by a per-response [ResponseStream] and never shared.
//
// The [Engine] implements transport.ResponseCreator on top of it: it
// normalizes the request, starts the agent run and drives the translator
// either into the SSE writer (stream=true) or into an in-memory collector
// whose final snapshot becomes the JSON response (stream=false).
package engine
