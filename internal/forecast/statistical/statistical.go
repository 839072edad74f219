// Package statistical holds the in-process forecasting models used for short
// or sparse demand series.
package statistical

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// z95 is the two-sided 95% normal quantile.
const z95 = 1.96

// Estimate is the prediction for one future step. Bounds are nil when the
// model has no basis for an interval.
type Estimate struct {
	Predicted float64
	Lower95   *float64
	Upper95   *float64
}

// Metrics describes how well the model fits the history it was given.
type Metrics struct {
	DataPoints int
	MAE        *float64
	Accuracy   *float64
}

// Forecast is the output of a statistical model.
type Forecast struct {
	Estimates []Estimate
	Metrics   Metrics
}

// MovingAverage predicts each future day as the mean of the last windowSize
// values, sliding the window forward over its own predictions. Bounds come
// from the standard deviation of the historical window.
func MovingAverage(series []domain.DemandPoint, windowSize, horizon int) (Forecast, error) {
	if horizon <= 0 {
		return Forecast{}, domain.ErrInvalidHorizon
	}
	if windowSize < 1 {
		return Forecast{}, fmt.Errorf("%w: window size %d", domain.ErrInvalidParameter, windowSize)
	}
	if len(series) == 0 {
		return zeroForecast(horizon), nil
	}

	values := demandValues(series)
	w := windowSize
	if w > len(values) {
		w = len(values)
	}

	window := append([]float64(nil), values[len(values)-w:]...)
	margin := z95 * stdDev(window)

	estimates := make([]Estimate, 0, horizon)
	for h := 0; h < horizon; h++ {
		m := mean(window)
		estimates = append(estimates, bounded(m, margin))
		window = append(window[1:], m)
	}

	return Forecast{
		Estimates: estimates,
		Metrics:   fitMetrics(values, movingAverageResiduals(values, windowSize)),
	}, nil
}

// ExponentialSmoothing keeps one smoothed level and repeats it over the
// horizon. Bounds widen linearly with the forecast step.
func ExponentialSmoothing(series []domain.DemandPoint, alpha float64, horizon int) (Forecast, error) {
	if horizon <= 0 {
		return Forecast{}, domain.ErrInvalidHorizon
	}
	if !(alpha > 0 && alpha <= 1) {
		return Forecast{}, fmt.Errorf("%w: alpha %v outside (0,1]", domain.ErrInvalidParameter, alpha)
	}
	if len(series) == 0 {
		return zeroForecast(horizon), nil
	}

	values := demandValues(series)
	level := values[0]
	residuals := make([]float64, 0, len(values)-1)
	for i, v := range values {
		if i > 0 {
			residuals = append(residuals, v-level)
		}
		level = alpha*v + (1-alpha)*level
	}

	sigma := rms(residuals)
	estimates := make([]Estimate, 0, horizon)
	for h := 1; h <= horizon; h++ {
		margin := z95 * sigma * (1 + alpha*float64(h-1))
		estimates = append(estimates, bounded(level, margin))
	}

	return Forecast{
		Estimates: estimates,
		Metrics:   fitMetrics(values, residuals),
	}, nil
}

func zeroForecast(horizon int) Forecast {
	return Forecast{Estimates: make([]Estimate, horizon)}
}

func bounded(predicted, margin float64) Estimate {
	if predicted < 0 {
		predicted = 0
	}
	lower := math.Max(0, predicted-margin)
	upper := predicted + margin
	return Estimate{Predicted: predicted, Lower95: &lower, Upper95: &upper}
}

// movingAverageResiduals returns one-step-ahead errors where each value is
// predicted by the mean of up to window preceding values.
func movingAverageResiduals(values []float64, window int) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		start := i - window
		if start < 0 {
			start = 0
		}
		out = append(out, values[i]-mean(values[start:i]))
	}
	return out
}

func fitMetrics(values, residuals []float64) Metrics {
	m := Metrics{DataPoints: len(values)}
	if len(residuals) == 0 {
		return m
	}

	var sum float64
	for _, r := range residuals {
		sum += math.Abs(r)
	}
	mae := sum / float64(len(residuals))
	m.MAE = &mae

	if avg := mean(values); avg > 0 {
		acc := 100 * (1 - mae/avg)
		acc = math.Max(0, math.Min(100, acc))
		m.Accuracy = &acc
	}
	return m
}

func demandValues(series []domain.DemandPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = float64(p.Demand)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation; zero for fewer than two values.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += v * v
	}
	return math.Sqrt(ss / float64(len(values)))
}
