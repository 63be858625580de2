package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCounter_IncrementAndExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	counter := NewRedisCounter(client, 2*time.Hour)
	bucket := BucketStart(time.Now())
	key := Key{Identifier: "203.0.113.7", BucketStart: bucket}

	for want := int64(1); want <= 3; want++ {
		got, err := counter.Increment(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	stored, err := mr.Get(redisKey(key))
	require.NoError(t, err)
	assert.Equal(t, "3", stored)

	ttl := mr.TTL(redisKey(key))
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 3*time.Hour)
}

func TestRedisCounter_BucketsAreIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	counter := NewRedisCounter(client, time.Hour)
	now := BucketStart(time.Now())

	_, err := counter.Increment(context.Background(), Key{Identifier: "c", BucketStart: now})
	require.NoError(t, err)
	got, err := counter.Increment(context.Background(), Key{Identifier: "c", BucketStart: now.Add(Window)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestRedisCounter_ConcurrentIncrements(t *testing.T) {
	_, client := newTestRedis(t)
	counter := NewRedisCounter(client, time.Hour)
	key := Key{Identifier: "unknown", BucketStart: BucketStart(time.Now())}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = counter.Increment(context.Background(), key)
		}()
	}
	wg.Wait()

	got, err := client.Get(context.Background(), redisKey(key)).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(n), got)
}

func TestRedisCounter_ServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	counter := NewRedisCounter(client, time.Hour)
	mr.Close()

	_, err := counter.Increment(context.Background(), Key{Identifier: "c", BucketStart: BucketStart(time.Now())})
	assert.Error(t, err)
}

func TestNewRedisCounter_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisCounter(nil, time.Hour))

	var counter *RedisCounter
	_, err := counter.Increment(context.Background(), Key{})
	assert.Error(t, err)
}
