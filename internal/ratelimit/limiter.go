// Package ratelimit provides a sliding-window rate limiter keyed by
// caller-chosen strings (sender IDs, client IPs). The window counts
// events whose timestamps fall within the trailing duration,
// independent of calendar buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks event timestamps per key. State is owned by the
// instance; construct one per concern and pass it down.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	events map[string][]time.Time
}

// New creates a limiter allowing max events per key per window.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		max:    max,
		window: window,
		events: make(map[string][]time.Time),
	}
}

// Allow records an event for key if it is within the limit and reports
// whether it was admitted.
func (l *Limiter) Allow(key string) bool {
	return l.AllowAt(key, time.Now())
}

// AllowAt is Allow with an explicit clock, for tests.
func (l *Limiter) AllowAt(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	recent := l.events[key][:0]
	for _, ts := range l.events[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.events[key] = recent
		return false
	}

	l.events[key] = append(recent, now)
	return true
}

// Count returns the number of in-window events for key.
func (l *Limiter) Count(key string) int {
	return l.CountAt(key, time.Now())
}

// CountAt is Count with an explicit clock, for tests.
func (l *Limiter) CountAt(key string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	n := 0
	for _, ts := range l.events[key] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// Reset drops all recorded events. Test isolation escape hatch.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = make(map[string][]time.Time)
}
