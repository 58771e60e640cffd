package transport

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/rhuss/strom/pkg/api"
)

// Middleware decorates a ResponseCreator.
type Middleware func(ResponseCreator) ResponseCreator

// Chain composes middlewares into one. The first middleware sees the
// request first and the result last.
func Chain(middlewares ...Middleware) Middleware {
	return func(next ResponseCreator) ResponseCreator {
		for _, mw := range slices.Backward(middlewares) {
			next = mw(next)
		}
		return next
	}
}

type contextKey int

const requestIDKey contextKey = iota

// RequestIDFromContext returns the request ID carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRequestID attaches a request ID to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID makes sure every creation runs with a request ID. The HTTP
// adapter already sets one from X-Request-ID; other callers get a fresh
// UUID.
func RequestID() Middleware {
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, uuid.NewString())
			}
			return next.CreateResponse(ctx, req, w)
		})
	}
}
