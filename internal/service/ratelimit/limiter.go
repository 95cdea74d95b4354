// Package ratelimit provides per-identity sliding-window admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the per-identity quota per window.
	DefaultMaxRequests = 20
	// DefaultWindow is the trailing interval the quota applies to.
	DefaultWindow = time.Hour

	// sweepInterval bounds how often the full identity map is scanned for
	// fully aged-out entries.
	sweepInterval = time.Minute
)

// Result is the outcome of an admission check. RetryAfter is set only when
// the request was rejected and is the time until the oldest counted request
// exits the window.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects requests per identity. Implementations must
// serialize concurrent admits for the same identity so the quota can never
// be exceeded by simultaneous callers.
type Limiter interface {
	Admit(ctx context.Context, identity string) (Result, error)
	Limit() int
	Window() time.Duration
}

// SlidingWindow is an in-process sliding-window-log Limiter. State is local
// to one process; use RedisLimiter when running multiple instances.
type SlidingWindow struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	entries   map[string][]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewSlidingWindow returns a memory-backed limiter admitting up to limit
// requests per identity within the trailing window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Limit implements Limiter.
func (l *SlidingWindow) Limit() int { return l.limit }

// Window implements Limiter.
func (l *SlidingWindow) Window() time.Duration { return l.window }

// Admit implements Limiter. The check-and-append runs under one lock so two
// concurrent admits cannot both observe the same pre-mutation count.
func (l *SlidingWindow) Admit(_ context.Context, identity string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	cutoff := now.Add(-l.window)
	timestamps := prune(l.entries[identity], cutoff)

	if len(timestamps) >= l.limit {
		l.entries[identity] = timestamps
		retryAfter := timestamps[0].Add(l.window).Sub(now)
		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	timestamps = append(timestamps, now)
	l.entries[identity] = timestamps
	return Result{Allowed: true, Remaining: l.limit - len(timestamps)}, nil
}

// maybeSweep drops identities whose timestamps have all aged out. Gated to
// once per sweepInterval so a busy server does not pay a full-map scan on
// every request.
func (l *SlidingWindow) maybeSweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(sweepInterval)

	cutoff := now.Add(-l.window)
	for identity, timestamps := range l.entries {
		kept := prune(timestamps, cutoff)
		if len(kept) == 0 {
			delete(l.entries, identity)
			continue
		}
		l.entries[identity] = kept
	}
}

func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
