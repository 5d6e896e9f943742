package server

import (
	"sync"
	"time"
)

// rateLimiter enforces a maximum number of requests per sliding window.
// Each connection gets its own limiter, so one noisy client cannot starve
// the others.
type rateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	stamps []time.Time
}

// newRateLimiter creates a limiter allowing max requests per window.
// A nil limiter (max <= 0) allows everything.
func newRateLimiter(max int, window time.Duration) *rateLimiter {
	if max <= 0 {
		return nil
	}
	return &rateLimiter{max: max, window: window}
}

// Allow records one request and reports whether it is within the limit.
func (l *rateLimiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, time.Now())
	return true
}
