package ratelimit

import (
	"fmt"

	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("ratelimit",
	fx.Provide(NewLimiter),
)

func NewLimiter(cfg config.Config, client *redis.Client) (Limiter, error) {
	switch cfg.RateLimit.Mode {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("ratelimit mode %q requires redis.addr", cfg.RateLimit.Mode)
		}
		return NewRedis(client, cfg.RateLimit.CallsPerSec), nil
	case "delay", "":
		return NewDelay(cfg.RateLimit.Delay), nil
	default:
		return nil, fmt.Errorf("unsupported ratelimit mode %q", cfg.RateLimit.Mode)
	}
}
