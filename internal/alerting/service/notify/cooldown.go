package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NoopCooldown never suppresses anything.
type NoopCooldown struct{}

func (NoopCooldown) TryAcquire(ctx context.Context, key string) bool { return true }

func (NoopCooldown) Release(ctx context.Context, key string) {}

// RedisCooldown implements the cool-down with SET NX + TTL. Best-effort:
// Redis being down must never block recording, so errors acquire.
type RedisCooldown struct {
	R   *redis.Client
	TTL time.Duration
}

func NewCooldown(rdb *redis.Client, ttl time.Duration) CooldownCache {
	if rdb == nil || ttl <= 0 {
		return NoopCooldown{}
	}
	return &RedisCooldown{R: rdb, TTL: ttl}
}

func (c *RedisCooldown) TryAcquire(ctx context.Context, key string) bool {
	ok, err := c.R.SetNX(ctx, key, "1", c.TTL).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cooldown check failed; recording anyway")
		return true
	}
	return ok
}

func (c *RedisCooldown) Release(ctx context.Context, key string) {
	if err := c.R.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cooldown release failed")
	}
}
