// Package ratelimit implements sliding-window admission control for remote
// calls keyed by a logical identifier.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// SlidingWindowLimiter admits at most capacity requests per rolling window
// for each key. The prune-check-append sequence runs under one lock, so
// concurrent callers for the same key cannot oversubscribe the capacity.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	buckets  map[string][]time.Time
	now      func() time.Time
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithClock overrides the time source; used by tests to drive the window.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		l.now = now
	}
}

// New creates a limiter admitting capacity requests per window.
func New(capacity int, window time.Duration, opts ...Option) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		capacity: capacity,
		window:   window,
		buckets:  make(map[string][]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a request for key may proceed right now, counting it
// if so. Expired timestamps are pruned before the capacity check.
func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.prune(key, now)

	if len(stamps) >= l.capacity {
		l.buckets[key] = stamps
		return false
	}

	l.buckets[key] = append(stamps, now)
	return true
}

// WaitSeconds returns the number of seconds until the oldest counted request
// leaves the window, or 0 if the key is currently under capacity.
func (l *SlidingWindowLimiter) WaitSeconds(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.prune(key, now)
	l.buckets[key] = stamps

	if len(stamps) < l.capacity {
		return 0
	}

	wait := stamps[0].Add(l.window).Sub(now)
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}

// Reset clears the counted requests for a key.
func (l *SlidingWindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// prune drops timestamps older than the window. Caller must hold l.mu.
func (l *SlidingWindowLimiter) prune(key string, now time.Time) []time.Time {
	stamps := l.buckets[key]
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
