package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestInFlightRegistryRegisterAndCancel(t *testing.T) {
	r := NewInFlightRegistry()

	cancelled := false
	r.Register("run_abc123", func() { cancelled = true })

	if !r.Cancel("run_abc123") {
		t.Error("Cancel should return true for registered ID")
	}
	if !cancelled {
		t.Error("cancel function should have been called")
	}
	if r.Cancel("run_abc123") {
		t.Error("Cancel should return false after already cancelled")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestInFlightRegistryCancelUnknown(t *testing.T) {
	r := NewInFlightRegistry()
	if r.Cancel("run_nonexistent") {
		t.Error("Cancel should return false for unknown ID")
	}
}

func TestInFlightRegistryRelease(t *testing.T) {
	r := NewInFlightRegistry()

	cancelled := false
	release := r.Register("run_abc123", func() { cancelled = true })
	release()

	if r.Cancel("run_abc123") {
		t.Error("Cancel should return false after release")
	}
	if cancelled {
		t.Error("cancel function should not have been called by release")
	}

	// Releasing twice is harmless.
	release()
}

func TestInFlightRegistryReusedID(t *testing.T) {
	r := NewInFlightRegistry()

	var first, second bool
	releaseFirst := r.Register("r1", func() { first = true })
	r.Register("r1", func() { second = true })

	// The stale release must not drop the newer registration.
	releaseFirst()
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if !r.Cancel("r1") {
		t.Fatal("Cancel should find the newer registration")
	}
	if first || !second {
		t.Errorf("cancelled first=%v second=%v, want only second", first, second)
	}
}

func TestInFlightRegistryConcurrentAccess(t *testing.T) {
	r := NewInFlightRegistry()
	var cancelCount atomic.Int64
	const numEntries = 100

	releases := make([]func(), numEntries)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := range numEntries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel := r.Register(fmt.Sprintf("run_%03d", i), func() { cancelCount.Add(1) })
			mu.Lock()
			releases[i] = rel
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if r.Len() != numEntries {
		t.Fatalf("Len() = %d, want %d", r.Len(), numEntries)
	}

	for i := range numEntries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Cancel(fmt.Sprintf("run_%03d", i))
			} else {
				releases[i]()
			}
		}(i)
	}
	wg.Wait()

	if cancelCount.Load() != numEntries/2 {
		t.Errorf("expected %d cancellations, got %d", numEntries/2, cancelCount.Load())
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after cleanup, want 0", r.Len())
	}
}
