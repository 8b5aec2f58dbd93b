// Package ratelimit paces provider calls to stay under the external
// request-rate ceiling. The delay limiter reproduces the classic fixed
// inter-call sleep; the redis limiter shares one per-second budget across
// concurrent batch runs.
package ratelimit

import (
	"context"
	"time"
)

type Limiter interface {
	// Wait blocks until the next provider call is allowed to start.
	Wait(ctx context.Context) error
}

type delayLimiter struct {
	interval time.Duration
}

func NewDelay(interval time.Duration) Limiter {
	return &delayLimiter{interval: interval}
}

func (l *delayLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
