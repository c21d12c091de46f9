package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/tably/tably/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// IssueLimiter guards the push-issuance endpoint.
type IssueLimiter struct {
	*Limiter
}

var Module = fx.Module("ratelimit",
	fx.Provide(newClient),
	fx.Provide(newIssueLimiter),
)

func newClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup, rate limiting degraded", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client
}

func newIssueLimiter(cfg config.Config, log *zap.Logger, client *redis.Client) IssueLimiter {
	if !cfg.RateLimit.Enabled {
		return IssueLimiter{}
	}
	return IssueLimiter{
		Limiter: NewLimiter(client, log, "tably:issue", cfg.RateLimit.IssueRate, cfg.RateLimit.IssueBurst),
	}
}
