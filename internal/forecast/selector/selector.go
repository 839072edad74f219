// Package selector picks a forecasting method for a demand series and runs it,
// falling back to exponential smoothing when a worker model fails.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/series"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/statistical"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/worker"
)

// Series length thresholds of the AUTO ladder.
const (
	minSmoothingPoints  = 14
	minRegressionPoints = 30
	minBoostingPoints   = 60
)

// Invoker runs a worker model.
type Invoker interface {
	Invoke(ctx context.Context, method domain.ForecastMethod, history []domain.DemandPoint, horizon int) (*worker.Output, error)
}

// Result is a forecast ready to be persisted.
type Result struct {
	Method        domain.ForecastMethod
	Requested     domain.ForecastMethod
	Points        []domain.ForecastPoint
	Params        domain.Params
	MAE           *float64
	Accuracy      *float64
	Fallback      bool
	OriginalError error
}

type Selector struct {
	worker Invoker
	window int
	alpha  float64
	now    func() time.Time
}

func New(w Invoker, cfg config.ForecastConfig) *Selector {
	window := cfg.MovingAverageWindow
	if window <= 0 {
		window = 5
	}
	alpha := cfg.SmoothingAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &Selector{worker: w, window: window, alpha: alpha, now: time.Now}
}

// WithClock returns a copy of the selector using now to date forecast periods.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	cp := *s
	cp.now = now
	return &cp
}

// ChooseMethod applies the AUTO ladder to a series of n observed days.
func ChooseMethod(n int) domain.ForecastMethod {
	switch {
	case n < minSmoothingPoints:
		return domain.MethodMovingAverage
	case n < minRegressionPoints:
		return domain.MethodExponentialSmoothing
	case n < minBoostingPoints:
		return domain.MethodLinearRegression
	default:
		return domain.MethodXGBoost
	}
}

// Forecast runs model (or the AUTO choice) over history. Periods are the
// horizon days following today.
func (s *Selector) Forecast(ctx context.Context, history []domain.DemandPoint, horizon int, model domain.ForecastMethod) (*Result, error) {
	if horizon <= 0 || horizon > domain.MaxHorizon {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidHorizon, horizon)
	}
	requested := model
	if model == "" || model == domain.ModelAuto {
		requested = domain.ModelAuto
		model = ChooseMethod(len(history))
	}

	start := series.Day(s.now()).AddDate(0, 0, 1)

	switch model {
	case domain.MethodMovingAverage:
		f, err := statistical.MovingAverage(history, s.window, horizon)
		if err != nil {
			return nil, err
		}
		return statisticalResult(model, requested, f, start, domain.Params{"windowSize": s.window}), nil

	case domain.MethodExponentialSmoothing:
		return s.smoothing(history, horizon, requested, start, domain.Params{})

	case domain.MethodLinearRegression, domain.MethodXGBoost, domain.MethodLSTM:
		out, err := s.worker.Invoke(ctx, model, series.DensifyObserved(history), horizon)
		if err != nil {
			log.Warn().
				Err(err).
				Str("method", model.String()).
				Msg("worker model failed, falling back to exponential smoothing")
			res, fbErr := s.smoothing(history, horizon, requested, start, domain.Params{
				"fallback":        true,
				"requestedMethod": model.String(),
				"originalError":   err.Error(),
			})
			if fbErr != nil {
				return nil, fbErr
			}
			res.Fallback = true
			res.OriginalError = err
			return res, nil
		}
		return workerResult(model, requested, out, start), nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, model)
	}
}

func (s *Selector) smoothing(history []domain.DemandPoint, horizon int, requested domain.ForecastMethod, start time.Time, params domain.Params) (*Result, error) {
	f, err := statistical.ExponentialSmoothing(history, s.alpha, horizon)
	if err != nil {
		return nil, err
	}
	params["alpha"] = s.alpha
	return statisticalResult(domain.MethodExponentialSmoothing, requested, f, start, params), nil
}

func statisticalResult(method, requested domain.ForecastMethod, f statistical.Forecast, start time.Time, params domain.Params) *Result {
	points := make([]domain.ForecastPoint, len(f.Estimates))
	for i, e := range f.Estimates {
		points[i] = domain.ForecastPoint{
			Period:    start.AddDate(0, 0, i),
			Predicted: e.Predicted,
			Lower95:   e.Lower95,
			Upper95:   e.Upper95,
		}
	}
	params["dataPoints"] = f.Metrics.DataPoints
	return &Result{
		Method:    method,
		Requested: requested,
		Points:    points,
		Params:    params,
		MAE:       f.Metrics.MAE,
		Accuracy:  f.Metrics.Accuracy,
	}
}

func workerResult(method, requested domain.ForecastMethod, out *worker.Output, start time.Time) *Result {
	points := make([]domain.ForecastPoint, len(out.Predictions))
	for i, p := range out.Predictions {
		predicted := p.Predicted
		if predicted < 0 {
			predicted = 0
		}
		points[i] = domain.ForecastPoint{
			Period:    start.AddDate(0, 0, i),
			Predicted: predicted,
			Lower95:   clampLower(p.Lower95, predicted),
			Upper95:   clampUpper(p.Upper95, predicted),
		}
	}

	params := domain.Params{"durationMs": out.Elapsed.Milliseconds()}
	if out.Metrics.RMSE != nil {
		params["rmse"] = *out.Metrics.RMSE
	}
	if out.Metrics.R2Score != nil {
		params["r2Score"] = *out.Metrics.R2Score
	}
	if out.Metrics.TrainingSamples != nil {
		params["trainingSamples"] = *out.Metrics.TrainingSamples
	}

	return &Result{
		Method:    method,
		Requested: requested,
		Points:    points,
		Params:    params,
		MAE:       out.Metrics.MAE,
		Accuracy:  out.Metrics.Accuracy,
	}
}

// clampLower keeps a worker bound within [0, predicted].
func clampLower(v *float64, predicted float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	if x < 0 {
		x = 0
	}
	if x > predicted {
		x = predicted
	}
	return &x
}

func clampUpper(v *float64, predicted float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	if x < predicted {
		x = predicted
	}
	return &x
}
