// Package ratelimit implements an in-memory token-bucket limiter keyed by
// client IP or API key name.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until one token is available; zero when
	// Allowed.
	RetryAfter time.Duration
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// Limiter holds one bucket per key. Each bucket holds up to limit tokens and
// refills continuously at limit per window.
type Limiter struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	once sync.Once
}

// New creates a Limiter with the given refill window and starts a
// background sweep of idle keys, stopped by Close.
func New(window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Take consumes one token for key. A non-positive limit always allows.
func (l *Limiter) Take(key string, limit int) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(limit)
	rate := capacity / l.window.Seconds()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, seen: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(capacity, b.tokens+now.Sub(b.seen).Seconds()*rate)
	b.seen = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / rate * float64(time.Second))
		return Decision{Limit: limit, RetryAfter: wait}
	}
	b.tokens--
	return Decision{Allowed: true, Limit: limit, Remaining: int(b.tokens)}
}

// Close stops the background sweep. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops buckets idle for two windows; they would be full again anyway.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
