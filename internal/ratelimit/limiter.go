// Package ratelimit implements per-client, per-event-kind sliding windows.
//
// Each (clientId, eventKind) pair keeps the epoch timestamps of accepted
// events inside the window. Stale timestamps are pruned lazily on every check,
// so an idle counter costs nothing until its client speaks again.
//
// Unlike a token bucket, the sliding window lets the broker report to the
// client exactly how many events it has used and when the window resets,
// which signaling clients use to schedule retries.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Verdict is the result of a rate limit check.
type Verdict struct {
	Allowed bool
	// Current is the number of events counted in the window, including this
	// one when allowed.
	Current int
	Limit   int
	// ResetAt is when the oldest retained event leaves the window.
	ResetAt time.Time
}

// Limiter applies per-kind ceilings over a sliding window.
type Limiter struct {
	mu       sync.Mutex
	counters map[string][]time.Time

	window   time.Duration
	ceilings map[string]int
	fallback int

	now func() time.Time
}

// NewLimiter creates a limiter with the given window and per-kind ceilings.
// Kinds not present in ceilings use the "default" entry, or 60 if absent.
func NewLimiter(window time.Duration, ceilings map[string]int) *Limiter {
	fallback, ok := ceilings["default"]
	if !ok {
		fallback = 60
	}
	return &Limiter{
		counters: make(map[string][]time.Time),
		window:   window,
		ceilings: ceilings,
		fallback: fallback,
		now:      time.Now,
	}
}

func (l *Limiter) ceiling(kind string) int {
	if c, ok := l.ceilings[kind]; ok {
		return c
	}
	return l.fallback
}

func counterKey(clientID, kind string) string {
	return clientID + ":" + kind
}

// Check prunes the window for (clientID, kind), compares against the ceiling,
// and records the event when allowed.
func (l *Limiter) Check(clientID, kind string) Verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	key := counterKey(clientID, kind)

	retained := l.counters[key][:0]
	for _, ts := range l.counters[key] {
		if ts.After(cutoff) {
			retained = append(retained, ts)
		}
	}

	limit := l.ceiling(kind)
	verdict := Verdict{
		Current: len(retained),
		Limit:   limit,
	}

	if len(retained) >= limit {
		l.counters[key] = retained
		verdict.ResetAt = retained[0].Add(l.window)
		return verdict
	}

	retained = append(retained, now)
	l.counters[key] = retained
	verdict.Allowed = true
	verdict.Current = len(retained)
	verdict.ResetAt = retained[0].Add(l.window)
	return verdict
}

// ResetAll drops every counter belonging to clientID. Invoked on disconnect.
func (l *Limiter) ResetAll(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := clientID + ":"
	for key := range l.counters {
		if strings.HasPrefix(key, prefix) {
			delete(l.counters, key)
		}
	}
}
