package statistical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func seriesOf(values ...int) []domain.DemandPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.DemandPoint, len(values))
	for i, v := range values {
		out[i] = domain.DemandPoint{Date: start.AddDate(0, 0, i), Demand: v}
	}
	return out
}

func assertBounds(t *testing.T, estimates []Estimate) {
	t.Helper()
	for i, e := range estimates {
		assert.GreaterOrEqual(t, e.Predicted, 0.0, "step %d", i)
		if e.Lower95 == nil || e.Upper95 == nil {
			continue
		}
		assert.GreaterOrEqual(t, *e.Lower95, 0.0, "step %d", i)
		assert.LessOrEqual(t, *e.Lower95, e.Predicted, "step %d", i)
		assert.LessOrEqual(t, e.Predicted, *e.Upper95, "step %d", i)
	}
}

func TestMovingAverageConstantSeries(t *testing.T) {
	f, err := MovingAverage(seriesOf(4, 4, 4, 4, 4, 4), 5, 7)
	require.NoError(t, err)
	require.Len(t, f.Estimates, 7)

	for _, e := range f.Estimates {
		assert.InDelta(t, 4.0, e.Predicted, 1e-9)
		require.NotNil(t, e.Lower95)
		assert.InDelta(t, 4.0, *e.Lower95, 1e-9)
		assert.InDelta(t, 4.0, *e.Upper95, 1e-9)
	}
	require.NotNil(t, f.Metrics.MAE)
	assert.InDelta(t, 0.0, *f.Metrics.MAE, 1e-9)
	require.NotNil(t, f.Metrics.Accuracy)
	assert.InDelta(t, 100.0, *f.Metrics.Accuracy, 1e-9)
	assert.Equal(t, 6, f.Metrics.DataPoints)
}

func TestMovingAverageSlidesOverPredictions(t *testing.T) {
	f, err := MovingAverage(seriesOf(1, 2, 3), 2, 3)
	require.NoError(t, err)

	// window [2,3] -> 2.5, then [3,2.5] -> 2.75, then [2.5,2.75] -> 2.625
	assert.InDelta(t, 2.5, f.Estimates[0].Predicted, 1e-9)
	assert.InDelta(t, 2.75, f.Estimates[1].Predicted, 1e-9)
	assert.InDelta(t, 2.625, f.Estimates[2].Predicted, 1e-9)
	assertBounds(t, f.Estimates)
}

func TestMovingAverageShortSeriesUsesAvailablePoints(t *testing.T) {
	f, err := MovingAverage(seriesOf(10, 0), 5, 2)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, f.Estimates[0].Predicted, 1e-9)
	assertBounds(t, f.Estimates)
	assert.InDelta(t, 0.0, *f.Estimates[0].Lower95, 1e-9)
}

func TestMovingAverageInvalidInput(t *testing.T) {
	_, err := MovingAverage(seriesOf(1, 2), 0, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = MovingAverage(seriesOf(1, 2), 3, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidHorizon)
}

func TestExponentialSmoothingLevel(t *testing.T) {
	f, err := ExponentialSmoothing(seriesOf(10, 20), 0.5, 3)
	require.NoError(t, err)
	require.Len(t, f.Estimates, 3)

	for _, e := range f.Estimates {
		assert.InDelta(t, 15.0, e.Predicted, 1e-9)
	}
	// single residual of 10 -> sigma 10
	assert.InDelta(t, 15.0+1.96*10, *f.Estimates[0].Upper95, 1e-9)
	assert.InDelta(t, 15.0+1.96*10*1.5, *f.Estimates[1].Upper95, 1e-9)
	assert.InDelta(t, 0.0, *f.Estimates[2].Lower95, 1e-9)
	assertBounds(t, f.Estimates)

	require.NotNil(t, f.Metrics.MAE)
	assert.InDelta(t, 10.0, *f.Metrics.MAE, 1e-9)
	require.NotNil(t, f.Metrics.Accuracy)
	assert.InDelta(t, 100*(1-10.0/15.0), *f.Metrics.Accuracy, 1e-9)
}

func TestExponentialSmoothingBoundsWiden(t *testing.T) {
	f, err := ExponentialSmoothing(seriesOf(3, 9, 4, 12, 6, 8, 2, 10), 0.3, 14)
	require.NoError(t, err)
	assertBounds(t, f.Estimates)

	for i := 1; i < len(f.Estimates); i++ {
		prev := *f.Estimates[i-1].Upper95 - f.Estimates[i-1].Predicted
		cur := *f.Estimates[i].Upper95 - f.Estimates[i].Predicted
		assert.Greater(t, cur, prev)
	}
}

func TestExponentialSmoothingInvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.1, 1.01} {
		_, err := ExponentialSmoothing(seriesOf(1, 2, 3), alpha, 5)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter, "alpha %v", alpha)
	}
	_, err := ExponentialSmoothing(seriesOf(1), 1, 5)
	assert.NoError(t, err)
}

func TestEmptySeriesGivesZeroPointsWithoutBounds(t *testing.T) {
	for name, fn := range map[string]func() (Forecast, error){
		"moving average":        func() (Forecast, error) { return MovingAverage(nil, 5, 4) },
		"exponential smoothing": func() (Forecast, error) { return ExponentialSmoothing(nil, 0.3, 4) },
	} {
		t.Run(name, func(t *testing.T) {
			f, err := fn()
			require.NoError(t, err)
			require.Len(t, f.Estimates, 4)
			for _, e := range f.Estimates {
				assert.Zero(t, e.Predicted)
				assert.Nil(t, e.Lower95)
				assert.Nil(t, e.Upper95)
			}
			assert.Nil(t, f.Metrics.MAE)
			assert.Nil(t, f.Metrics.Accuracy)
		})
	}
}

func TestAccuracyAbsentForZeroMean(t *testing.T) {
	f, err := ExponentialSmoothing(seriesOf(0, 0, 0), 0.3, 2)
	require.NoError(t, err)
	require.NotNil(t, f.Metrics.MAE)
	assert.Nil(t, f.Metrics.Accuracy)
}
