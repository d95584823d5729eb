package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

const (
	defaultCacheItems = 1000
	defaultCacheTTL   = 10 * time.Minute
	cacheKeyPrefix    = "diabetes-risk:score:"
)

// Score is one remote model response: both outputs for one feature vector.
type Score struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// redisStore is the subset of *redis.Client the cache uses.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// ResponseCache keeps remote scores keyed by feature vector so that Predict and
// PredictProbability for the same record cost one round trip. The memory tier is
// always on; Redis is an optional shared second tier.
type ResponseCache struct {
	logger *logrus.Logger
	memory *expirable.LRU[string, Score]
	redis  redisStore
	ttl    time.Duration
}

// NewResponseCache creates a cache from configuration. An unreachable Redis is
// an error; an empty Redis URL disables the second tier.
func NewResponseCache(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (*ResponseCache, error) {
	var store redisStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store = client
	}
	return newResponseCache(cfg, store, logger), nil
}

func newResponseCache(cfg domain.CacheConfig, store redisStore, logger *logrus.Logger) *ResponseCache {
	size := cfg.MaxItems
	if size <= 0 {
		size = defaultCacheItems
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResponseCache{
		logger: logger,
		memory: expirable.NewLRU[string, Score](size, nil, ttl),
		redis:  store,
		ttl:    ttl,
	}
}

// Key returns the cache key of a feature vector.
func Key(features domain.FeatureVector) string {
	parts := make([]string, len(features))
	for i, v := range features {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return cacheKeyPrefix + strings.Join(parts, ",")
}

// Get looks the key up in memory, then in Redis. A Redis hit is promoted to memory.
func (c *ResponseCache) Get(ctx context.Context, key string) (Score, bool) {
	if score, ok := c.memory.Get(key); ok {
		return score, true
	}
	if c.redis == nil {
		return Score{}, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return Score{}, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis cache lookup failed")
		return Score{}, false
	}

	var score Score
	if err := json.Unmarshal([]byte(val), &score); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding corrupt cache entry")
		return Score{}, false
	}
	c.memory.Add(key, score)
	return score, true
}

// Set stores the score in both tiers. Redis write failures are logged only.
func (c *ResponseCache) Set(ctx context.Context, key string, score Score) {
	c.memory.Add(key, score)
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(score)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis cache write failed")
	}
}

// Len returns the number of entries in the memory tier.
func (c *ResponseCache) Len() int {
	return c.memory.Len()
}

// Close releases the Redis connection, if any.
func (c *ResponseCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
