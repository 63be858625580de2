package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/aesthetic-leads/internal/config"
	"github.com/wolfman30/aesthetic-leads/internal/ratelimit"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

// Rate limit store names accepted in RATE_LIMIT_STORE.
const (
	RateLimitStoreMemory   = "memory"
	RateLimitStorePostgres = "postgres"
	RateLimitStoreRedis    = "redis"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// RateLimitStore is the counter chosen by configuration. Pruner is nil for
// stores that expire buckets on their own.
type RateLimitStore struct {
	Name    string
	Counter ratelimit.Counter
	Pruner  ratelimit.Pruner
}

// BuildRateLimitStore picks the booking rate limit counter named by
// cfg.RateLimitStore. The chosen backend must be available; the booking
// form fails closed rather than running without a limiter.
func BuildRateLimitStore(cfg *appconfig.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) (*RateLimitStore, error) {
	if logger == nil {
		logger = logging.Default()
	}
	name := RateLimitStorePostgres
	if cfg != nil && cfg.RateLimitStore != "" {
		name = cfg.RateLimitStore
	}

	switch name {
	case RateLimitStoreMemory:
		logger.Warn("using in-memory rate limit counters; limits reset on restart and are not shared between instances")
		counter := ratelimit.NewMemoryCounter()
		return &RateLimitStore{Name: name, Counter: counter, Pruner: counter}, nil
	case RateLimitStorePostgres:
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: rate limit store %q needs DATABASE_URL", name)
		}
		counter := ratelimit.NewPostgresCounter(pool)
		return &RateLimitStore{Name: name, Counter: counter, Pruner: counter}, nil
	case RateLimitStoreRedis:
		counter := ratelimit.NewRedisCounter(redisClient, cfg.RateLimitRetention)
		if counter == nil {
			return nil, fmt.Errorf("bootstrap: rate limit store %q needs a reachable REDIS_ADDR", name)
		}
		return &RateLimitStore{Name: name, Counter: counter}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown rate limit store %q", name)
	}
}
