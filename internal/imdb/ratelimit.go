package imdb

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter enforces a minimum interval between requests to each host.
// Callers attempting to exceed the rate block until their turn; they never
// fail on throttling alone.
type hostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is permitted or ctx ends.
func (l *hostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.interval <= 0 {
		return nil
	}
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()
	return limiter.Wait(ctx)
}
