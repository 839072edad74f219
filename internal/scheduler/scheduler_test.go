package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/memory"
)

func defaultSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:      true,
		Timezone:     "UTC",
		DailyCron:    "0 2 * * *",
		WeeklyCron:   "0 3 * * 0",
		LowStockCron: "0 8 * * *",
		ExpiryCron:   "0 6 * * *",
	}
}

func TestNewRegistersNamedEntries(t *testing.T) {
	s, err := New(defaultSchedulerConfig(), newJobs(memory.NewStore(), &fakeForecaster{}))
	require.NoError(t, err)
	assert.Equal(t, []string{JobDaily, JobExpiry, JobLowStock, JobWeekly}, s.Names())

	_, ok := s.Next("monthly")
	assert.False(t, ok)
}

func TestNewSkipsEmptySpecs(t *testing.T) {
	cfg := defaultSchedulerConfig()
	cfg.WeeklyCron = ""
	s, err := New(cfg, newJobs(memory.NewStore(), &fakeForecaster{}))
	require.NoError(t, err)
	assert.Equal(t, []string{JobDaily, JobExpiry, JobLowStock}, s.Names())
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := defaultSchedulerConfig()
	cfg.DailyCron = "every day at two"
	_, err := New(cfg, newJobs(memory.NewStore(), &fakeForecaster{}))
	assert.Error(t, err)

	cfg = defaultSchedulerConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err = New(cfg, newJobs(memory.NewStore(), &fakeForecaster{}))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(defaultSchedulerConfig(), newJobs(memory.NewStore(), &fakeForecaster{}))
	require.NoError(t, err)

	s.Start()
	s.Start()

	next, ok := s.Next(JobDaily)
	require.True(t, ok)
	assert.False(t, next.IsZero())
	assert.Equal(t, 2, next.UTC().Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx))
}

func TestRestartAfterStopDeadline(t *testing.T) {
	store := memory.NewStore()
	store.AddProduct(product(1, 50, 5))
	s, err := New(defaultSchedulerConfig(), newJobs(store, &fakeForecaster{}))
	require.NoError(t, err)

	s.Start()
	first := s.jobContext()

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	_ = s.Stop(expired)
	assert.Error(t, first.Err())

	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()
	assert.NoError(t, s.jobContext().Err())

	s.run(JobDaily)
	logs := store.JobLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].ProductsProcessed)
	assert.Equal(t, domain.JobSuccess, logs[0].Status)
}
