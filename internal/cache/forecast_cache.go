package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const latestForecastKeyPrefix = "forecast:latest"

// ForecastCache holds the latest forecast run per product.
type ForecastCache interface {
	GetLatest(ctx context.Context, productID int64) (*domain.ForecastRun, bool, error)
	SetLatest(ctx context.Context, run *domain.ForecastRun) error
	InvalidateLatest(ctx context.Context, productID int64) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisForecastCache(client, forecastTTL(cfg)), nil
}

// NewRedisForecastCache wraps an existing client.
func NewRedisForecastCache(client *redis.Client, ttl time.Duration) ForecastCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisForecastCache{client: client, ttl: ttl}
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) GetLatest(ctx context.Context, productID int64) (*domain.ForecastRun, bool, error) {
	payload, err := c.client.Get(ctx, latestForecastKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var run domain.ForecastRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, false, fmt.Errorf("decode latest forecast cache: %w", err)
	}
	return &run, true, nil
}

func (c *redisForecastCache) SetLatest(ctx context.Context, run *domain.ForecastRun) error {
	if run == nil {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode latest forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, latestForecastKey(run.ProductID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateLatest(ctx context.Context, productID int64) error {
	return c.client.Del(ctx, latestForecastKey(productID)).Err()
}

func (n *noopForecastCache) GetLatest(ctx context.Context, productID int64) (*domain.ForecastRun, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) SetLatest(ctx context.Context, run *domain.ForecastRun) error {
	return nil
}

func (n *noopForecastCache) InvalidateLatest(ctx context.Context, productID int64) error {
	return nil
}

func latestForecastKey(productID int64) string {
	return fmt.Sprintf("%s:%d", latestForecastKeyPrefix, productID)
}
