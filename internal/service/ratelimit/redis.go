package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding-window-log Limiter backed by a shared Redis
// instance, for deployments with more than one API process. Each identity
// maps to a sorted set of request timestamps (unix milliseconds) that expires
// once the whole window has passed.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLimiter returns a Redis-backed limiter with the same contract as
// SlidingWindow.
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "companion:ratelimit:",
		now:    time.Now,
	}
}

// admitScript prunes, counts and conditionally records a request in one
// atomic step, so concurrent admits for the same identity cannot both read a
// stale count. Returns {1, count-before-add} when admitted, {0, oldest-score}
// when over quota.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local cutoff = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, cutoff)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, oldest[2]}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, count}
`)

// Limit implements Limiter.
func (l *RedisLimiter) Limit() int { return l.limit }

// Window implements Limiter.
func (l *RedisLimiter) Window() time.Duration { return l.window }

// Admit implements Limiter.
func (l *RedisLimiter) Admit(ctx context.Context, identity string) (Result, error) {
	key := l.prefix + identity
	now := l.now()
	cutoff := now.Add(-l.window).UnixMilli()

	reply, err := admitScript.Run(ctx, l.client, []string{key},
		cutoff,
		now.UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
		uuid.NewString(),
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit admit: %w", err)
	}
	if len(reply) == 0 {
		return Result{}, fmt.Errorf("ratelimit admit: empty script reply")
	}

	admitted, err := replyInt64(reply[0])
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit admit: %w", err)
	}

	if admitted == 0 {
		retryAfter := l.window
		if len(reply) > 1 {
			if oldestMs, err := replyInt64(reply[1]); err == nil {
				retryAfter = time.UnixMilli(oldestMs).Add(l.window).Sub(now)
			}
		}
		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	if len(reply) < 2 {
		return Result{}, fmt.Errorf("ratelimit admit: truncated script reply")
	}
	count, err := replyInt64(reply[1])
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit admit: %w", err)
	}
	return Result{Allowed: true, Remaining: l.limit - int(count) - 1}, nil
}

// replyInt64 converts a Lua script reply element; sorted-set scores come back
// as bulk strings rather than integers.
func replyInt64(v interface{}) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse script reply %q: %w", v, err)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unexpected script reply type %T", v)
	}
}
