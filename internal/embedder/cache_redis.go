package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisTTL is how long a cached embedding lives in Redis
const DefaultRedisTTL = 7 * 24 * time.Hour

// RedisCache shares embeddings between processes through Redis. Keys are
// prefixed and namespaced by model so providers never see each other's
// vectors.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// RedisOptions configures a RedisCache
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key namespace, e.g. "litsearch:emb:bge-m3:"
	TTL      time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, opts RedisOptions, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}

	return newRedisCache(client, opts, logger), nil
}

func newRedisCache(client *redis.Client, opts RedisOptions, logger zerolog.Logger) *RedisCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "litsearch:emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Key returns the Redis key for a content hash
func (c *RedisCache) Key(hash string) string {
	return c.prefix + hash
}

// Get returns the cached embedding. Redis errors count as a miss.
func (c *RedisCache) Get(ctx context.Context, hash string) (*Embedding, bool) {
	raw, err := c.client.Get(ctx, c.Key(hash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("hash", hash).Msg("redis cache get failed")
		}
		return nil, false
	}

	var emb Embedding
	if err := json.Unmarshal(raw, &emb); err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("discarding corrupt cache entry")
		return nil, false
	}
	return &emb, true
}

// Set stores the embedding; failures are logged and otherwise ignored
func (c *RedisCache) Set(ctx context.Context, hash string, emb *Embedding) {
	raw, err := json.Marshal(emb)
	if err != nil {
		c.logger.Warn().Err(err).Msg("encode cache entry")
		return
	}
	if err := c.client.Set(ctx, c.Key(hash), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("redis cache set failed")
	}
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
