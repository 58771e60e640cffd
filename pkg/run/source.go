package run

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Source yields upstream events in order. Next returns io.EOF once the
// run has no more events; any other error means the producer failed.
// Close releases the source and signals the producer to stop. It is safe
// to call Close more than once and after Next returned an error.
type Source interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// EmitFunc hands one event to the consumer. It blocks until the consumer
// has taken the event or the source is closed, in which case it returns
// the context error.
type EmitFunc func(Event) error

// ProducerFunc generates events for a Stream. It must return promptly once
// ctx is cancelled.
type ProducerFunc func(ctx context.Context, emit EmitFunc) error

// Stream runs producer on its own goroutine and exposes its events as a
// Source. The hand-off is unbuffered, so the producer never runs ahead of
// the consumer by more than one event.
func Stream(ctx context.Context, producer ProducerFunc) Source {
	ctx, cancel := context.WithCancel(ctx)
	s := &streamSource{
		events: make(chan Event),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(s.done)
		s.err = producer(ctx, func(ev Event) error {
			select {
			case s.events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return s
}

type streamSource struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	err    error
	once   sync.Once
}

func (s *streamSource) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *streamSource) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	if s.err != nil && !errors.Is(s.err, context.Canceled) {
		return s.err
	}
	return nil
}

// SliceSource replays a fixed list of events. It is mostly useful in tests
// and for agents that produce their whole output up front.
type SliceSource struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

// FromEvents returns a Source that yields events and then io.EOF.
func FromEvents(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// FailAfter makes the source return err instead of io.EOF once the events
// are exhausted.
func (s *SliceSource) FailAfter(err error) *SliceSource {
	s.err = err
	return s
}

// Next returns the next event.
func (s *SliceSource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, io.EOF
	}
	if len(s.events) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

// Close marks the source closed. Remaining events are dropped.
func (s *SliceSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Remaining reports how many events were never read.
func (s *SliceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
