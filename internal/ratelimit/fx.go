package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vendora/internal/config"
	"go.uber.org/fx"
)

// NewRedisClient returns nil when no redis address is configured; the
// limiter then passes every request through.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
)
