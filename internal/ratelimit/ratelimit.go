package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy bounds request frequency for one platform. Interval enforces a
// minimum gap between grants; WindowLimit/WindowSpan enforce a rolling cap
// (grants per span) that allows bursts up to the budget. Either half may be
// zero to disable it.
type Policy struct {
	Interval    time.Duration
	WindowLimit int
	WindowSpan  time.Duration
	Buffer      time.Duration // safety margin added when the window is full
}

// Limiter is a per-platform delay gate. Acquire blocks (via timer, not a
// spin-loop) until the platform's policy admits another request.
type Limiter struct {
	mu        sync.Mutex
	policies  map[string]Policy
	lastGrant map[string]time.Time
	recent    map[string][]time.Time

	now func() time.Time // test hook
}

func New() *Limiter {
	return &Limiter{
		policies:  make(map[string]Policy),
		lastGrant: make(map[string]time.Time),
		recent:    make(map[string][]time.Time),
		now:       time.Now,
	}
}

// SetPolicy installs or replaces the policy for a platform key. Keys without
// a policy are never delayed.
func (l *Limiter) SetPolicy(key string, p Policy) {
	l.mu.Lock()
	l.policies[key] = p
	l.mu.Unlock()
}

// Acquire blocks until the key's policy admits a request, then records the
// grant. Returns early with the context's error if it is cancelled while
// waiting.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		wait := l.delayLocked(key)
		if wait <= 0 {
			l.grantLocked(key)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) delayLocked(key string) time.Duration {
	p, ok := l.policies[key]
	if !ok {
		return 0
	}
	now := l.now()

	var wait time.Duration
	if p.Interval > 0 {
		if last, ok := l.lastGrant[key]; ok {
			if gap := p.Interval - now.Sub(last); gap > wait {
				wait = gap
			}
		}
	}

	if p.WindowLimit > 0 && p.WindowSpan > 0 {
		window := l.evictLocked(key, now, p.WindowSpan)
		if len(window) >= p.WindowLimit {
			// Delay until the oldest grant slides out of the window.
			oldest := window[0]
			if gap := p.WindowSpan - now.Sub(oldest) + p.Buffer; gap > wait {
				wait = gap
			}
		}
	}

	return wait
}

func (l *Limiter) evictLocked(key string, now time.Time, span time.Duration) []time.Time {
	window := l.recent[key]
	cut := 0
	for cut < len(window) && now.Sub(window[cut]) >= span {
		cut++
	}
	if cut > 0 {
		window = append(window[:0:0], window[cut:]...)
		l.recent[key] = window
	}
	return window
}

func (l *Limiter) grantLocked(key string) {
	p, ok := l.policies[key]
	if !ok {
		return
	}
	now := l.now()
	l.lastGrant[key] = now
	if p.WindowLimit > 0 && p.WindowSpan > 0 {
		l.recent[key] = append(l.recent[key], now)
	}
}
