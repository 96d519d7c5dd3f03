// Package ratelimit implements a fixed-window request limiter keyed by
// client. Two backends exist: an in-process map for single-instance
// deployments and Redis for deployments with more than one replica.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result describes the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // Until the current window resets
}

// Limiter decides whether one more request from key fits into the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type window struct {
	count int
	start time.Time
}

// MemoryLimiter keeps one counter per key in memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter allows max requests per key in each period.
func NewMemoryLimiter(max int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++

	res := Result{
		Allowed:    w.count <= l.max,
		Limit:      l.max,
		Remaining:  max(l.max-w.count, 0),
		RetryAfter: w.start.Add(l.period).Sub(now),
	}
	return res, nil
}

// Sweep drops windows that have already expired and returns how many were
// removed. It is run periodically by the scheduler.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
