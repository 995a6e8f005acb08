package rate

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter limits operations based on a provided key, such as a session id or
// a client address.
type Limiter interface {
	Allow(key string) (bool, error)
}

type localRateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	sync.Mutex
	limiters map[string]*entry
	lastGC   time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter returns an in memory limiter allowing limit operations
// per second for each key. Burst is the per second limit rounded up, and at
// least one. Keys unused for idleTTL are forgotten; a zero idleTTL keeps them
// forever.
func NewLocalRateLimiter(limit rate.Limit, idleTTL time.Duration) Limiter {
	burst := int(math.Ceil(float64(limit)))
	if burst < 1 {
		burst = 1
	}

	return &localRateLimiter{
		limit:    limit,
		burst:    burst,
		ttl:      idleTTL,
		limiters: make(map[string]*entry),
		lastGC:   time.Now(),
	}
}

// Allow implements limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	now := time.Now()

	l.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.gc(now)
	l.Unlock()

	return e.limiter.AllowN(now, 1), nil
}

// gc must be called with the lock held
func (l *localRateLimiter) gc(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.lastGC) < l.ttl {
		return
	}

	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.ttl {
			delete(l.limiters, key)
		}
	}
	l.lastGC = now
}

// NoLimiter never limits operations
type NoLimiter struct {
}

// Allow implements limiter.Allow.
func (n *NoLimiter) Allow(key string) (bool, error) {
	return true, nil
}
