package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. A nil *Limiter never limits.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows r events per second with bursts of b. r <= 0 means unlimited.
func NewLimiter(r float64, b int) *Limiter {
	if b < 1 {
		b = 1
	}
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	return &Limiter{inner: rate.NewLimiter(limit, b)}
}

// Allow reports whether n tokens are available now and takes them if so.
func (l *Limiter) Allow(n int) bool {
	if l == nil {
		return true
	}
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil {
		return ctx.Err()
	}
	return l.inner.WaitN(ctx, n)
}

// Acquire takes one token, blocking when the bucket is empty. throttled is
// true when the caller had to wait (or gave up waiting).
func (l *Limiter) Acquire(ctx context.Context) (throttled bool, err error) {
	if l.Allow(1) {
		return false, nil
	}
	return true, l.Wait(ctx, 1)
}
