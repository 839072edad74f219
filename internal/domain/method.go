package domain

import (
	"fmt"
	"strings"
)

// ForecastMethod identifies the model that produced a forecast run.
type ForecastMethod string

const (
	MethodMovingAverage        ForecastMethod = "MOVING_AVERAGE"
	MethodExponentialSmoothing ForecastMethod = "EXPONENTIAL_SMOOTHING"
	MethodLinearRegression     ForecastMethod = "LINEAR_REGRESSION"
	MethodXGBoost              ForecastMethod = "XGBOOST"
	MethodLSTM                 ForecastMethod = "LSTM"
)

// MaxHorizon is the longest forecast, in days, the engine produces.
const MaxHorizon = 365

// ModelAuto asks the selector to pick a method from the series length.
const ModelAuto ForecastMethod = "AUTO"

var forecastMethodCodes = map[string]ForecastMethod{
	"auto":                  ModelAuto,
	"moving_average":        MethodMovingAverage,
	"exponential_smoothing": MethodExponentialSmoothing,
	"linear_regression":     MethodLinearRegression,
	"xgboost":               MethodXGBoost,
	"lstm":                  MethodLSTM,
}

// ParseModelType accepts either the API spelling ("linear_regression") or the
// stored spelling ("LINEAR_REGRESSION"). An empty string means AUTO.
func ParseModelType(raw string) (ForecastMethod, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ModelAuto, nil
	}
	if m, ok := forecastMethodCodes[key]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, raw)
}

// IsStatistical reports whether the method runs in-process.
func (m ForecastMethod) IsStatistical() bool {
	return m == MethodMovingAverage || m == MethodExponentialSmoothing
}

func (m ForecastMethod) String() string {
	return string(m)
}

// RiskLevel is the three-tier classification produced by the risk evaluator.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// AlertType enumerates the alerts the engine emits.
type AlertType string

const (
	AlertStockoutRisk  AlertType = "STOCKOUT_RISK"
	AlertOverstockRisk AlertType = "OVERSTOCK_RISK"
	AlertLowStock      AlertType = "LOW_STOCK"
	AlertOutOfStock    AlertType = "OUT_OF_STOCK"
	AlertExpired       AlertType = "EXPIRED"
	AlertExpiringSoon  AlertType = "EXPIRING_SOON"
)

// Severity of an emitted alert.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// JobType names a scheduled batch.
type JobType string

const (
	JobDailyForecast  JobType = "DAILY_FORECAST"
	JobWeeklyAnalysis JobType = "WEEKLY_ANALYSIS"
	JobLowStockSweep  JobType = "LOW_STOCK_SWEEP"
	JobExpiryCheck    JobType = "EXPIRY_CHECK"
)

// JobStatus is the outcome recorded for a batch.
type JobStatus string

const (
	JobSuccess        JobStatus = "SUCCESS"
	JobPartialFailure JobStatus = "PARTIAL_FAILURE"
)
