// Package app wires the forecasting engine from configuration. Both the HTTP
// server and the CLI build their components here.
package app

import (
	"io"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/alert"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/runner"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/selector"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/series"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/worker"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
)

type App struct {
	Config  *config.Config
	Store   repository.Store
	Runner  *runner.Runner
	Service *service.ForecastService
	Jobs    *scheduler.Jobs
	Alerts  alert.Emitter

	closers []io.Closer
}

// New builds the engine on top of store. Redis problems degrade to no cache
// and no live alert publishing rather than failing startup.
func New(cfg *config.Config, store repository.Store) *App {
	a := &App{Config: cfg, Store: store}

	transport := worker.NewProcessTransport(cfg.Worker)
	if err := transport.Check(); err != nil {
		log.Error().Err(err).Msg("numeric worker unavailable, regression and ML forecasts will fall back to exponential smoothing")
	}
	bridge := worker.NewBridge(transport)
	a.Runner = runner.New(
		series.NewBuilder(store),
		selector.New(bridge, cfg.Forecast),
		store,
		cfg.Forecast,
	)

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("forecast cache unavailable, continuing without cache")
		forecastCache = cache.NewNoopForecastCache()
	}

	a.Alerts = a.buildAlerts(store)
	a.Service = service.NewForecastService(store, a.Runner, forecastCache, a.Alerts, cfg.Forecast)
	a.Jobs = scheduler.NewJobs(store, a.Runner, a.Alerts, forecastCache, cfg.Forecast.DefaultHorizon)
	return a
}

func (a *App) buildAlerts(store repository.Store) alert.Emitter {
	storeEmitter := alert.NewStoreEmitter(store)
	if !a.Config.Alerts.PublishEnabled {
		return storeEmitter
	}

	client, err := cache.NewRedisClient(a.Config.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("alert publishing disabled, redis unavailable")
		return storeEmitter
	}
	a.closers = append(a.closers, client)
	return alert.NewFanout(storeEmitter, alert.NewRedisPublisher(client, a.Config.Alerts.Channel))
}

// Scheduler builds the cron scheduler over the app's jobs.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(a.Config.Scheduler, a.Jobs)
}

// Close releases connections opened by New.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
