package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func TestNewForecastCacheDisabledIsNoop(t *testing.T) {
	c, err := NewForecastCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.SetLatest(ctx, &domain.ForecastRun{ProductID: 3}))
	run, ok, err := c.GetLatest(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, run)
	assert.NoError(t, c.InvalidateLatest(ctx, 3))
}

func TestLatestForecastKey(t *testing.T) {
	assert.Equal(t, "forecast:latest:42", latestForecastKey(42))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisPort: "6380", RedisPassword: "secret", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:pw@cache.internal:6379/4"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", opts.Addr)
	assert.Equal(t, 4, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestForecastTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, forecastTTL(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, forecastTTL(config.CacheConfig{ForecastTTLSeconds: 30}))
}
