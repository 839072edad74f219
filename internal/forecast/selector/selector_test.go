package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast/worker"
)

var now = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type fakeInvoker struct {
	calls   []domain.ForecastMethod
	history []domain.DemandPoint
	out     *worker.Output
	err     error
}

func (f *fakeInvoker) Invoke(ctx context.Context, method domain.ForecastMethod, history []domain.DemandPoint, horizon int) (*worker.Output, error) {
	f.calls = append(f.calls, method)
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	out := &worker.Output{}
	for i := 1; i <= horizon; i++ {
		out.Predictions = append(out.Predictions, worker.Prediction{Period: i, Predicted: 7})
	}
	return out, nil
}

func newSelector(w Invoker) *Selector {
	return New(w, config.ForecastConfig{MovingAverageWindow: 5, SmoothingAlpha: 0.3}).
		WithClock(func() time.Time { return now })
}

func dailySeries(n int, demand func(i int) int) []domain.DemandPoint {
	start := now.AddDate(0, 0, -n)
	out := make([]domain.DemandPoint, n)
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i] = domain.DemandPoint{Date: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), Demand: demand(i)}
	}
	return out
}

func constant(v int) func(int) int { return func(int) int { return v } }

func TestChooseMethodLadder(t *testing.T) {
	cases := []struct {
		n    int
		want domain.ForecastMethod
	}{
		{0, domain.MethodMovingAverage},
		{5, domain.MethodMovingAverage},
		{13, domain.MethodMovingAverage},
		{14, domain.MethodExponentialSmoothing},
		{29, domain.MethodExponentialSmoothing},
		{30, domain.MethodLinearRegression},
		{59, domain.MethodLinearRegression},
		{60, domain.MethodXGBoost},
		{365, domain.MethodXGBoost},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ChooseMethod(tc.n), "n=%d", tc.n)
	}
}

func TestAutoUsesLadder(t *testing.T) {
	cases := []struct {
		n          int
		wantMethod domain.ForecastMethod
		wantWorker bool
	}{
		{13, domain.MethodMovingAverage, false},
		{14, domain.MethodExponentialSmoothing, false},
		{30, domain.MethodLinearRegression, true},
		{60, domain.MethodXGBoost, true},
	}
	for _, tc := range cases {
		inv := &fakeInvoker{}
		res, err := newSelector(inv).Forecast(context.Background(), dailySeries(tc.n, constant(3)), 7, domain.ModelAuto)
		require.NoError(t, err)
		assert.Equal(t, tc.wantMethod, res.Method, "n=%d", tc.n)
		assert.Equal(t, domain.ModelAuto, res.Requested)
		assert.Equal(t, tc.wantWorker, len(inv.calls) == 1, "n=%d", tc.n)
		assert.False(t, res.Fallback)
		assert.Len(t, res.Points, 7)
	}
}

func TestExplicitOverrideIsRespected(t *testing.T) {
	inv := &fakeInvoker{}
	res, err := newSelector(inv).Forecast(context.Background(), dailySeries(6, constant(2)), 3, domain.MethodLSTM)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodLSTM, res.Method)
	assert.Equal(t, []domain.ForecastMethod{domain.MethodLSTM}, inv.calls)

	res, err = newSelector(inv).Forecast(context.Background(), dailySeries(90, constant(2)), 3, domain.MethodMovingAverage)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodMovingAverage, res.Method)
	assert.Len(t, inv.calls, 1)
	assert.Equal(t, 5, res.Params["windowSize"])
}

func TestWorkerGetsDenseSeries(t *testing.T) {
	history := []domain.DemandPoint{
		{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Demand: 4},
		{Date: time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), Demand: 6},
	}
	inv := &fakeInvoker{}
	_, err := newSelector(inv).Forecast(context.Background(), history, 2, domain.MethodXGBoost)
	require.NoError(t, err)
	require.Len(t, inv.history, 4)
	assert.Equal(t, 0, inv.history[1].Demand)
}

func TestFallbackOnWorkerFailure(t *testing.T) {
	cause := &worker.ExecutionError{Model: domain.MethodXGBoost, Diagnostic: "killed", Err: errors.New("signal: killed")}
	inv := &fakeInvoker{err: cause}

	res, err := newSelector(inv).Forecast(context.Background(), dailySeries(70, constant(5)), 5, domain.ModelAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodExponentialSmoothing, res.Method)
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.OriginalError, domain.ErrModelExecutionFailed)
	assert.Equal(t, true, res.Params["fallback"])
	assert.Equal(t, "XGBOOST", res.Params["requestedMethod"])
	assert.Contains(t, res.Params["originalError"], "killed")
	assert.Equal(t, 0.3, res.Params["alpha"])
}

func TestFallbackEndToEnd(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("worker unavailable")}
	history := dailySeries(40, func(i int) int {
		if i%2 == 0 {
			return 8
		}
		return 12
	})

	res, err := newSelector(inv).Forecast(context.Background(), history, 14, domain.ModelAuto)
	require.NoError(t, err)
	assert.Equal(t, []domain.ForecastMethod{domain.MethodLinearRegression}, inv.calls)
	assert.Equal(t, domain.MethodExponentialSmoothing, res.Method)
	assert.True(t, res.Fallback)
	require.Len(t, res.Points, 14)

	tomorrow := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	for i, p := range res.Points {
		assert.Equal(t, tomorrow.AddDate(0, 0, i), p.Period)
		assert.GreaterOrEqual(t, p.Predicted, 0.0)
		assert.InDelta(t, 10, p.Predicted, 2)
		require.NotNil(t, p.Lower95)
		require.NotNil(t, p.Upper95)
		assert.GreaterOrEqual(t, *p.Lower95, 0.0)
		assert.LessOrEqual(t, *p.Lower95, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, *p.Upper95)
	}
}

func TestWorkerResultMapping(t *testing.T) {
	samples := 58
	inv := &fakeInvoker{out: &worker.Output{
		Predictions: []worker.Prediction{
			{Period: 1, Predicted: -2, Lower95: domain.Float64Ptr(-5), Upper95: domain.Float64Ptr(1)},
			{Period: 2, Predicted: 4, Lower95: domain.Float64Ptr(6), Upper95: domain.Float64Ptr(3)},
		},
		Metrics: worker.Metrics{
			MAE:             domain.Float64Ptr(1.2),
			Accuracy:        domain.Float64Ptr(88),
			RMSE:            domain.Float64Ptr(1.9),
			TrainingSamples: &samples,
		},
	}}

	res, err := newSelector(inv).Forecast(context.Background(), dailySeries(60, constant(4)), 2, domain.ModelAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodXGBoost, res.Method)

	assert.Equal(t, 0.0, res.Points[0].Predicted)
	assert.Equal(t, 0.0, *res.Points[0].Lower95)
	assert.Equal(t, 1.0, *res.Points[0].Upper95)
	assert.Equal(t, 4.0, *res.Points[1].Lower95)
	assert.Equal(t, 4.0, *res.Points[1].Upper95)

	assert.Equal(t, 1.2, *res.MAE)
	assert.Equal(t, 88.0, *res.Accuracy)
	assert.Equal(t, 1.9, res.Params["rmse"])
	assert.Equal(t, 58, res.Params["trainingSamples"])
}

func TestUnsupportedModel(t *testing.T) {
	_, err := newSelector(&fakeInvoker{}).Forecast(context.Background(), dailySeries(10, constant(1)), 3, domain.ForecastMethod("PROPHET"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedModel)

	_, err = newSelector(&fakeInvoker{}).Forecast(context.Background(), dailySeries(10, constant(1)), 0, domain.ModelAuto)
	assert.ErrorIs(t, err, domain.ErrInvalidHorizon)
}
