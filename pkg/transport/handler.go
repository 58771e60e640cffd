package transport

import (
	"context"

	"github.com/rhuss/strom/pkg/api"
)

// ResponseCreator turns one create request into output on w: either a
// sequence of frames closed by the sentinel, or a single Response.
//
// An error returned before anything was written is rendered by the
// transport as a JSON error. An error returned after the first frame
// leaves the client with a truncated stream.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error
}

// ResponseCreatorFunc lets a plain function serve as a ResponseCreator.
type ResponseCreatorFunc func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error

// CreateResponse calls f(ctx, req, w).
func (f ResponseCreatorFunc) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter is the output side of one request. A writer is used in
// exactly one mode: frames (WriteEvent, then WriteDone) or a single
// WriteResponse. Mixing the two fails, and nothing may follow WriteDone.
type ResponseWriter interface {
	// WriteEvent delivers one frame and returns after it was flushed.
	// It fails once the client is gone.
	WriteEvent(ctx context.Context, event api.StreamEvent) error

	// WriteDone delivers the terminal sentinel of a successful stream.
	WriteDone(ctx context.Context) error

	// WriteResponse delivers a complete non-streaming response.
	WriteResponse(ctx context.Context, resp *api.Response) error

	// Flush pushes buffered bytes to the client.
	Flush() error
}
