package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/tripmesh/integrations/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisBucket),
	fx.Provide(NewGovernor),
)

// NewRedisBucket returns nil when distributed rate limiting is disabled;
// the Governor treats a nil bucket as "monthly quota only".
func NewRedisBucket(cfg config.Config) *TokenBucket {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RateLimit.RedisAddr,
		DB:   cfg.RateLimit.RedisDB,
	})
	return NewTokenBucket(client)
}
