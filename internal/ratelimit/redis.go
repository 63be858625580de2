package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "booking_rl:"

// RedisCounter keeps counters as Redis integers. Keys expire once the
// retention after their bucket has passed, so no pruning job is needed.
type RedisCounter struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisCounter returns a Redis-backed counter, or nil without a client.
func NewRedisCounter(client *redis.Client, retention time.Duration) *RedisCounter {
	if client == nil {
		return nil
	}
	if retention < 0 {
		retention = 0
	}
	return &RedisCounter{client: client, retention: retention}
}

func redisKey(key Key) string {
	return redisKeyPrefix + key.Identifier + ":" + strconv.FormatInt(key.BucketStart.Unix(), 10)
}

// Increment implements Counter. INCR is atomic on the server; the expiry is
// set in the same MULTI block.
func (c *RedisCounter) Increment(ctx context.Context, key Key) (int64, error) {
	if c == nil || c.client == nil {
		return 0, errors.New("ratelimit: redis client not configured")
	}
	ctx, span := rateLimitTracer.Start(ctx, "ratelimit.redis.increment")
	defer span.End()

	k := redisKey(key)
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireAt(ctx, k, key.BucketStart.Add(Window+c.retention))
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	return incr.Val(), nil
}

var _ Counter = (*RedisCounter)(nil)
