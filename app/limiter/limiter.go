package limiter

import (
	"sync"
	"time"
)

// Limiter is a process-local sliding-window rate limiter. It protects
// gated endpoints against casual abuse; it is not a distributed limiter
// and makes no guarantees across processes.
type Limiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time

	now func() time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the client identified by key may proceed. It prunes
// timestamps older than the window, admits when the remaining count is below
// the maximum, and records the new timestamp on admission.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	cutoff := now.Add(-l.window)
	recent := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}

// Remaining returns how long the client must wait before the oldest
// in-window hit expires. Zero when the client is not currently limited.
func (l *Limiter) Remaining(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hits[key]
	if len(hits) < l.max {
		return 0
	}

	wait := hits[0].Add(l.window).Sub(l.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// sweep drops clients untouched for more than twice the window so one-off
// clients cannot grow the table without bound. Caller holds the lock.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	stale := now.Add(-2 * l.window)
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(stale) {
			delete(l.hits, key)
		}
	}
}
