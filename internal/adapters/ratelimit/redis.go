package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a fixed-window counter shared by every replica through Redis.
type Redis struct {
	client redis.Cmdable
	max    int
	window time.Duration
	s      settings
}

// NewRedis allows max requests per key in each window using client.
func NewRedis(client redis.Cmdable, limit int, window time.Duration, opts ...Option) (*Redis, error) {
	if err := validate(limit, window); err != nil {
		return nil, err
	}
	return &Redis{client: client, max: limit, window: window, s: newSettings(opts)}, nil
}

// Name implements Limiter.
func (r *Redis) Name() string { return "redis" }

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.s.now()
	slot := now.UnixNano() / int64(r.window)
	k := r.s.prefix + key + ":" + strconv.FormatInt(slot, 10)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}

	count := int(incr.Val())
	return Decision{
		Allowed:   count <= r.max,
		Limit:     r.max,
		Remaining: max(r.max-count, 0),
		Reset:     windowReset(now, r.window),
	}, nil
}
