package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter decides whether an identity may make another request.
// A rejection returns an error matching ErrTooManyRequests.
type RateLimiter interface {
	Allow(ctx context.Context, id *Identity) error
}

// LimitError is returned when an identity exhausted its window.
type LimitError struct {
	Tier       string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for tier %q, retry in %s", e.Tier, e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrTooManyRequests) hold.
func (e *LimitError) Is(target error) bool {
	return target == ErrTooManyRequests
}

// WindowLimiter counts requests per subject and tier in fixed one-minute
// windows, in memory. Limits are requests per minute; zero or negative
// means unlimited.
type WindowLimiter struct {
	tiers      map[string]int
	defaultRPM int
	window     time.Duration
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	swept   time.Time
}

type window struct {
	start time.Time
	count int
}

// NewWindowLimiter creates a limiter. tiers maps a tier name to its
// requests per minute; tiers not listed get defaultRPM.
func NewWindowLimiter(tiers map[string]int, defaultRPM int) *WindowLimiter {
	return &WindowLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		window:     time.Minute,
		now:        time.Now,
		windows:    make(map[string]*window),
	}
}

// Allow counts one request for id.
func (l *WindowLimiter) Allow(_ context.Context, id *Identity) error {
	tier := id.TierOrDefault()
	limit := l.defaultRPM
	if rpm, ok := l.tiers[tier]; ok {
		limit = rpm
	}
	if limit <= 0 {
		return nil
	}

	key := tier + "/" + id.Subject
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return nil
	}
	if w.count >= limit {
		return &LimitError{Tier: tier, RetryAfter: w.start.Add(l.window).Sub(now)}
	}
	w.count++
	return nil
}

// sweep drops expired windows at most once per window length so idle
// subjects do not accumulate. Callers hold l.mu.
func (l *WindowLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < l.window {
		return
	}
	l.swept = now
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
}
