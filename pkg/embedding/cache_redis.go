package embedding

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "recall:embedding:"

// RedisCache is a Redis-backed embedding cache for deployments that share
// one cache across processes. TTL enforcement is delegated to Redis key
// expiry. Backend failures degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// RedisConfig configures the Redis embedding cache.
type RedisConfig struct {
	// Addr is the Redis host:port (required).
	Addr string

	// Password is the Redis password, if any.
	Password string

	// DB selects the Redis logical database.
	DB int

	// TTL bounds entry age (default 1h).
	TTL time.Duration
}

// NewRedisCache creates a Redis-backed cache and verifies connectivity.
func NewRedisCache(cfg RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns the entry for key if present. Backend errors read as misses.
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("embedding cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("embedding cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &entry, true
}

// Set stores an entry under key with the configured TTL. Write failures are
// logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("embedding cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache write failed", "key", key, "error", err)
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
