package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter is a per-key token bucket. Every key starts full at capacity and
// refills at refillPerSec tokens per second.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*entry
	limit  rate.Limit
	burst  int
	idle   time.Duration
	clock  clockwork.Clock
	lastGC time.Time
}

type Option func(*Limiter)

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithIdleEviction drops buckets untouched for d; they would be full again anyway.
func WithIdleEviction(d time.Duration) Option {
	return func(l *Limiter) { l.idle = d }
}

func New(capacity, refillPerSec float64, opts ...Option) *Limiter {
	l := &Limiter{
		m:     make(map[string]*entry),
		limit: rate.Limit(refillPerSec),
		idle:  10 * time.Minute,
		clock: clockwork.NewRealClock(),
	}
	if capacity > 0 {
		l.burst = int(capacity)
		if l.burst < 1 {
			l.burst = 1
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastGC = l.clock.Now()
	return l
}

// Allow returns true if one token can be consumed for key.
// A non-positive capacity disables limiting.
func (l *Limiter) Allow(key string) bool {
	if l.burst == 0 {
		return true
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.gcLocked(now)

	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (l *Limiter) gcLocked(now time.Time) {
	if l.idle <= 0 || now.Sub(l.lastGC) < l.idle {
		return
	}
	for k, e := range l.m {
		if now.Sub(e.seen) >= l.idle {
			delete(l.m, k)
		}
	}
	l.lastGC = now
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
