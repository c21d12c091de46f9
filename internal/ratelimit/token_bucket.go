package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tokenBucketScript refills a per-key bucket lazily on each call and
// takes one token when available. Keys expire once a full refill has
// elapsed so idle buckets cost nothing.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(bucket[1])
local ts = tonumber(bucket[2])
if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'ts', now)
redis.call('EXPIRE', key, math.ceil(burst / rate) + 1)
return allowed
`)

// Limiter is a Redis token bucket. A nil Limiter allows everything, so
// callers never branch on whether rate limiting is configured.
type Limiter struct {
	client *redis.Client
	log    *zap.Logger
	rate   float64
	burst  int
	prefix string
}

func NewLimiter(client *redis.Client, log *zap.Logger, prefix string, rate float64, burst int) *Limiter {
	if client == nil || rate <= 0 || burst <= 0 {
		return nil
	}
	return &Limiter{
		client: client,
		log:    log.Named("ratelimit"),
		rate:   rate,
		burst:  burst,
		prefix: prefix,
	}
}

// Allow reports whether one more event for the key fits in the bucket.
// Redis being down fails open: slowing admin tooling down is worse than
// briefly losing the limit.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return true
	}

	now := float64(time.Now().UnixMicro()) / 1e6
	allowed, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		l.rate, l.burst, now,
	).Int()
	if err != nil {
		l.log.Warn("token bucket check failed, allowing request", zap.Error(err))
		return true
	}
	return allowed == 1
}
