// Package runner produces and persists one forecast run per product.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/selector"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

const defaultMinHistoryPoints = 5

// SeriesSource builds the demand series of a product.
type SeriesSource interface {
	Build(ctx context.Context, productID int64, lookbackDays int) ([]domain.DemandPoint, error)
}

// Forecaster turns a demand series into forecast points.
type Forecaster interface {
	Forecast(ctx context.Context, history []domain.DemandPoint, horizon int, model domain.ForecastMethod) (*selector.Result, error)
}

type Runner struct {
	series       SeriesSource
	forecaster   Forecaster
	forecasts    repository.ForecastRepository
	lookbackDays int
	minPoints    int
}

func New(src SeriesSource, f Forecaster, forecasts repository.ForecastRepository, cfg config.ForecastConfig) *Runner {
	minPoints := cfg.MinHistoryPoints
	if minPoints <= 0 {
		minPoints = defaultMinHistoryPoints
	}
	return &Runner{
		series:       src,
		forecaster:   f,
		forecasts:    forecasts,
		lookbackDays: cfg.LookbackDays,
		minPoints:    minPoints,
	}
}

// Run forecasts productID with the AUTO model choice.
func (r *Runner) Run(ctx context.Context, productID int64, horizon int) (*domain.ForecastRun, error) {
	return r.RunWithModel(ctx, productID, horizon, domain.ModelAuto)
}

// RunWithModel builds the series, forecasts it and stores one run with
// horizon points. It returns nil without touching the store when the product
// has fewer than the minimum number of demand points.
func (r *Runner) RunWithModel(ctx context.Context, productID int64, horizon int, model domain.ForecastMethod) (*domain.ForecastRun, error) {
	if horizon <= 0 || horizon > domain.MaxHorizon {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidHorizon, horizon)
	}
	started := time.Now()

	history, err := r.series.Build(ctx, productID, r.lookbackDays)
	if err != nil {
		return nil, err
	}
	if len(history) < r.minPoints {
		log.Info().
			Int64("product_id", productID).
			Int("points", len(history)).
			Msg("insufficient history, skipping forecast")
		return nil, nil
	}

	res, err := r.forecaster.Forecast(ctx, history, horizon, model)
	if err != nil {
		return nil, fmt.Errorf("forecast product %d: %w", productID, err)
	}

	run := &domain.ForecastRun{
		ProductID: productID,
		Method:    res.Method,
		Horizon:   horizon,
		Params:    res.Params,
		MAE:       res.MAE,
		Accuracy:  res.Accuracy,
	}
	if err := r.forecasts.CreateForecastRun(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: create run for product %d: %v", domain.ErrPersistenceFailure, productID, err)
	}

	points := make([]domain.ForecastPoint, len(res.Points))
	for i, p := range res.Points {
		p.RunID = run.ID
		points[i] = p
	}
	if err := r.forecasts.CreateForecastPoints(ctx, run.ID, points); err != nil {
		log.Warn().
			Err(err).
			Int64("product_id", productID).
			Int64("run_id", run.ID).
			Msg("forecast points not stored, run left without points")
		return nil, fmt.Errorf("%w: create points for run %d: %v", domain.ErrPersistenceFailure, run.ID, err)
	}
	run.Points = points

	log.Info().
		Int64("product_id", productID).
		Int64("run_id", run.ID).
		Str("method", run.Method.String()).
		Bool("fallback", res.Fallback).
		Int("points", len(history)).
		Dur("duration", time.Since(started)).
		Msg("forecast stored")

	return run, nil
}
