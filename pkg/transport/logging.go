package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rhuss/strom/pkg/api"
)

// Logging returns middleware that emits one entry per request with the
// request ID, model, stream flag, duration and the number of frames the
// client received.
//
// An *api.APIError means the request was rejected before any output and
// is logged at warn level. Any other error cut a stream short and is
// logged at error level together with the frames already delivered.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
			start := time.Now()
			cw := &countingWriter{ResponseWriter: w}

			err := next.CreateResponse(ctx, req, cw)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.IsStream()),
				slog.Duration("duration", time.Since(start)),
			}
			if req.IsStream() {
				attrs = append(attrs, slog.Int("frames", cw.frames), slog.Bool("done", cw.done))
			}

			var apiErr *api.APIError
			switch {
			case err == nil:
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			case errors.As(err, &apiErr) && cw.frames == 0:
				attrs = append(attrs,
					slog.String("error_type", string(apiErr.Type)),
					slog.String("error", apiErr.Error()),
				)
				logger.LogAttrs(ctx, slog.LevelWarn, "request rejected", attrs...)
			default:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "stream aborted", attrs...)
			}
			return err
		})
	}
}

// countingWriter tracks what reached the client.
type countingWriter struct {
	ResponseWriter
	frames int
	done   bool
}

func (w *countingWriter) WriteEvent(ctx context.Context, ev api.StreamEvent) error {
	if err := w.ResponseWriter.WriteEvent(ctx, ev); err != nil {
		return err
	}
	w.frames++
	return nil
}

func (w *countingWriter) WriteDone(ctx context.Context) error {
	if err := w.ResponseWriter.WriteDone(ctx); err != nil {
		return err
	}
	w.done = true
	return nil
}
