package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (client IP, upstream host).
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

// New creates a limiter allowing rps sustained requests and burst extra per key.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*rate.Limiter), rps: rate.Limit(rps), burst: burst}
}

// For returns the bucket for key, creating it on first use.
func (l *Limiter) For(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.m[key] = lim
	}
	return lim
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.For(key).Allow()
}
