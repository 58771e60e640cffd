package run

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestStreamDeliversInOrder(t *testing.T) {
	src := Stream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		for _, ev := range []Event{Started{RunID: "r"}, Content{ContentType: ContentTypeText, Content: "a"}, Completed{}} {
			if err := emit(ev); err != nil {
				return err
			}
		}
		return nil
	})
	defer src.Close()

	var kinds []Kind
	for {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		kinds = append(kinds, ev.Kind())
	}

	want := []Kind{KindStarted, KindContent, KindCompleted}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestStreamProducerError(t *testing.T) {
	boom := errors.New("boom")
	src := Stream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		if err := emit(Started{RunID: "r"}); err != nil {
			return err
		}
		return boom
	})

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("second Next error = %v, want %v", err, boom)
	}
	if err := src.Close(); !errors.Is(err, boom) {
		t.Errorf("Close error = %v, want %v", err, boom)
	}
}

func TestStreamCloseStopsProducer(t *testing.T) {
	stopped := make(chan struct{})
	src := Stream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		defer close(stopped)
		for {
			if err := emit(Content{ContentType: ContentTypeText, Content: "x"}); err != nil {
				return err
			}
		}
	})

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop after Close")
	}

	// Closing twice is allowed.
	if err := src.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestStreamNextHonorsContext(t *testing.T) {
	src := Stream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		<-ctx.Done()
		return ctx.Err()
	})
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next error = %v, want context.Canceled", err)
	}
}

func TestSliceSource(t *testing.T) {
	src := FromEvents(Started{RunID: "r"}, Completed{})

	ev, err := src.Next(context.Background())
	if err != nil || ev.Kind() != KindStarted {
		t.Fatalf("Next = (%v, %v), want run_started", ev, err)
	}
	if src.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", src.Remaining())
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next after Close = %v, want io.EOF", err)
	}
}

func TestSliceSourceFailAfter(t *testing.T) {
	boom := errors.New("upstream reset")
	src := FromEvents(Started{RunID: "r"}).FailAfter(boom)

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Next error = %v, want %v", err, boom)
	}
}
