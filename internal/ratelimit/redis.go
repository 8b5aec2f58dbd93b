package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const windowKeyPrefix = "ratelimit:provider:"

type redisLimiter struct {
	client      *redis.Client
	callsPerSec int64
}

// NewRedis builds a limiter backed by a shared per-second counter, so the
// provider rate holds even when several batch runs fetch concurrently.
func NewRedis(client *redis.Client, callsPerSec int64) Limiter {
	return &redisLimiter{client: client, callsPerSec: callsPerSec}
}

func (l *redisLimiter) Wait(ctx context.Context) error {
	for {
		now := time.Now()
		key := fmt.Sprintf("%s%d", windowKeyPrefix, now.Unix())

		// Increment and TTL commit together so a failed expire can never
		// leave the window key behind forever.
		pipe := l.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, 2*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		if incr.Val() <= l.callsPerSec {
			return nil
		}

		// Window full; sleep to the next second and take a fresh slot.
		wait := time.Until(now.Truncate(time.Second).Add(time.Second))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
