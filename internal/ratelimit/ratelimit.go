// Package ratelimit throttles how often file loads may start.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces load starts. A nil *Limiter never waits.
type Limiter struct {
	limiter *rate.Limiter
}

// New allows perSecond load starts per second with the given burst.
// perSecond <= 0 disables throttling; burst < 1 is treated as 1.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if perSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a load may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a load may start now without waiting.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Limit is the configured rate, 0 when unlimited.
func (l *Limiter) Limit() float64 {
	if l == nil || l.limiter.Limit() == rate.Inf {
		return 0
	}
	return float64(l.limiter.Limit())
}

func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	return l.limiter.Burst()
}
