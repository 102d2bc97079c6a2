package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter shares fixed-window counters across instances using INCR and
// PEXPIRE. The window starts at the first request for a key.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	tracer trace.Tracer
}

func NewRedisLimiter(client *redis.Client, limit int, win time.Duration) *RedisLimiter {
	if win <= 0 {
		win = DefaultWindow
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: win,
		tracer: otel.Tracer("aim.internal.ratelimit"),
	}
}

func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	ctx, span := l.tracer.Start(ctx, "ratelimit.check")
	defer span.End()
	span.SetAttributes(attribute.String("ratelimit.key", key))

	rkey := redisKeyPrefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	ttl := pipe.PTTL(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	count := int(incr.Val())
	remainingTTL := ttl.Val()
	if count == 1 || remainingTTL < 0 {
		if err := l.client.PExpire(ctx, rkey, l.window).Err(); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
		remainingTTL = l.window
	}

	res := Result{
		Allowed: count <= l.limit,
		Limit:   l.limit,
		ResetAt: time.Now().Add(remainingTTL),
	}
	if res.Allowed {
		res.Remaining = l.limit - count
	}
	span.SetAttributes(attribute.Bool("ratelimit.allowed", res.Allowed))
	return res, nil
}
