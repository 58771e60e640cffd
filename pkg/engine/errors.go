package engine

import (
	"errors"
	"fmt"
)

// Failure kinds of an aborted stream. Match with errors.Is.
var (
	// ErrProtocolViolation means the upstream sent an event that is not
	// valid in the current state, an unknown event, or a bad payload.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUpstreamExhausted means the event source ended, or failed, before
	// the run completed.
	ErrUpstreamExhausted = errors.New("upstream exhausted")

	// ErrTransportFailure means a frame could not be delivered or the
	// serving context was cancelled.
	ErrTransportFailure = errors.New("transport failure")
)

// StreamError is the error returned when a translation aborts. Kind is one
// of the sentinel errors above; Err is the underlying cause, if any.
type StreamError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *StreamError) Error() string {
	s := e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StreamError) Unwrap() []error {
	errs := make([]error, 0, 2)
	for _, err := range []error{e.Kind, e.Err} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func violation(format string, args ...any) *StreamError {
	return &StreamError{Kind: ErrProtocolViolation, Msg: fmt.Sprintf(format, args...)}
}

func exhausted(msg string, cause error) *StreamError {
	return &StreamError{Kind: ErrUpstreamExhausted, Msg: msg, Err: cause}
}

func transportFailure(msg string, cause error) *StreamError {
	return &StreamError{Kind: ErrTransportFailure, Msg: msg, Err: cause}
}

// FailureKind returns a metric label for err: "protocol_violation",
// "upstream_exhausted", "transport_failure", or "error" for anything else.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrUpstreamExhausted):
		return "upstream_exhausted"
	case errors.Is(err, ErrTransportFailure):
		return "transport_failure"
	}
	return "error"
}
