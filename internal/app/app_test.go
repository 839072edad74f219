package app

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/memory"
	"github.com/andresuchdata/stockcast/backend-go/internal/scheduler"
)

func TestNewWiresEngine(t *testing.T) {
	cfg := config.LoadFrom(viper.New())
	store := memory.NewStore()
	store.AddProduct(domain.Product{ID: 1, Name: "Tea", CurrentStock: 0, LowStockThreshold: 2, Active: true})

	a := New(cfg, store)
	defer a.Close()

	require.NotNil(t, a.Service)
	require.NotNil(t, a.Runner)

	s, err := a.Scheduler()
	require.NoError(t, err)
	assert.Equal(t, []string{scheduler.JobDaily, scheduler.JobExpiry, scheduler.JobLowStock, scheduler.JobWeekly}, s.Names())

	summary, err := a.Jobs.Trigger(context.Background(), scheduler.JobLowStock)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProductsProcessed)
	require.Len(t, store.Alerts(), 1)
	assert.Equal(t, domain.AlertOutOfStock, store.Alerts()[0].Type)
}

func TestNewFallsBackWhenRedisIsUnreachable(t *testing.T) {
	cfg := config.LoadFrom(viper.New())
	cfg.Cache.Enabled = true
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"
	cfg.Alerts.PublishEnabled = true

	a := New(cfg, memory.NewStore())
	defer a.Close()

	_, err := a.Service.LatestForecast(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrForecastNotFound)
}
