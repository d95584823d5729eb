package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// MockRedisStore is a mock implementation of the redisStore interface
type MockRedisStore struct {
	mock.Mock
}

func (m *MockRedisStore) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func (m *MockRedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return redis.NewStatusResult("OK", args.Error(0))
}

func (m *MockRedisStore) Close() error {
	return m.Called().Error(0)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "diabetes-risk:score:2,117,72,29,125,33.6,0.627,50", Key(testFeatures))
	assert.NotEqual(t, Key(testFeatures), Key(domain.FeatureVector{}))
}

func TestResponseCache_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	cache := newResponseCache(domain.CacheConfig{MaxItems: 2, TTL: time.Minute}, nil, newTestLogger())

	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)

	cache.Set(ctx, "a", Score{Label: 1, Probability: 0.9})
	cache.Set(ctx, "b", Score{Label: 0, Probability: 0.1})
	cache.Set(ctx, "c", Score{Label: 0, Probability: 0.2})

	// "a" was evicted by the size bound
	_, ok = cache.Get(ctx, "a")
	assert.False(t, ok)

	score, ok := cache.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, 0.2, score.Probability)
	assert.Equal(t, 2, cache.Len())
	assert.NoError(t, cache.Close())
}

func TestResponseCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := newResponseCache(domain.CacheConfig{MaxItems: 10, TTL: 20 * time.Millisecond}, nil, newTestLogger())

	cache.Set(ctx, "a", Score{Label: 1})
	time.Sleep(60 * time.Millisecond)

	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)
}

func TestResponseCache_RedisTier(t *testing.T) {
	ctx := context.Background()

	t.Run("Hit_Promoted_To_Memory", func(t *testing.T) {
		store := new(MockRedisStore)
		store.On("Get", ctx, "k").Return(`{"label":1,"probability":0.66}`, nil).Once()

		cache := newResponseCache(domain.CacheConfig{}, store, newTestLogger())

		score, ok := cache.Get(ctx, "k")
		require.True(t, ok)
		assert.Equal(t, Score{Label: 1, Probability: 0.66}, score)

		// Second lookup is served from memory
		_, ok = cache.Get(ctx, "k")
		assert.True(t, ok)
		store.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("Miss", func(t *testing.T) {
		store := new(MockRedisStore)
		store.On("Get", ctx, "k").Return("", redis.Nil)

		cache := newResponseCache(domain.CacheConfig{}, store, newTestLogger())
		_, ok := cache.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("Corrupt_Entry", func(t *testing.T) {
		store := new(MockRedisStore)
		store.On("Get", ctx, "k").Return("{broken", nil)

		cache := newResponseCache(domain.CacheConfig{}, store, newTestLogger())
		_, ok := cache.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("Write_Through", func(t *testing.T) {
		store := new(MockRedisStore)
		store.On("Set", ctx, "k", mock.Anything, defaultCacheTTL).Return(errors.New("connection refused"))
		store.On("Close").Return(nil)

		cache := newResponseCache(domain.CacheConfig{}, store, newTestLogger())
		cache.Set(ctx, "k", Score{Label: 1, Probability: 0.5})

		_, ok := cache.Get(ctx, "k")
		assert.True(t, ok)
		assert.NoError(t, cache.Close())
		store.AssertExpectations(t)
	})
}

func TestNewResponseCache_BadURL(t *testing.T) {
	_, err := NewResponseCache(context.Background(), domain.CacheConfig{RedisURL: "://bad"}, newTestLogger())
	assert.Error(t, err)
}
