// Package worker runs the numeric (ML) models out of process. Each call spawns
// a fresh worker, writes one JSON request to its stdin and reads one JSON
// document from its stdout once the process has exited.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// Transport delivers one request payload to a model entry point and returns
// the raw response document.
type Transport interface {
	Exchange(ctx context.Context, entrypoint string, payload []byte) ([]byte, error)
}

var entrypoints = map[domain.ForecastMethod]string{
	domain.MethodLinearRegression: "linear_regression",
	domain.MethodXGBoost:          "xgboost_model",
	domain.MethodLSTM:             "lstm_model",
}

// ExecutionError is returned for every failed model call. It matches
// domain.ErrModelExecutionFailed.
type ExecutionError struct {
	Model      domain.ForecastMethod
	Diagnostic string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("model %s failed: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model %s failed: %s", e.Model, e.Diagnostic)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool {
	return target == domain.ErrModelExecutionFailed
}

// Bridge maps forecast methods onto worker entry points.
type Bridge struct {
	transport Transport
}

func NewBridge(t Transport) *Bridge {
	return &Bridge{transport: t}
}

// Supports reports whether the method is served by the worker.
func Supports(method domain.ForecastMethod) bool {
	_, ok := entrypoints[method]
	return ok
}

// Invoke runs method over history and returns exactly horizon predictions.
// An unknown method returns domain.ErrUnsupportedModel; all other failures
// are *ExecutionError.
func (b *Bridge) Invoke(ctx context.Context, method domain.ForecastMethod, history []domain.DemandPoint, horizon int) (*Output, error) {
	entrypoint, ok := entrypoints[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a worker model", domain.ErrUnsupportedModel, method)
	}
	if horizon <= 0 {
		return nil, domain.ErrInvalidHorizon
	}

	req := request{HistoricalData: make([]historicalPoint, 0, len(history)), Horizon: horizon}
	for _, p := range history {
		req.HistoricalData = append(req.HistoricalData, historicalPoint{
			Date:     p.Date.UTC().Format(dateLayout),
			Quantity: p.Demand,
		})
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &ExecutionError{Model: method, Diagnostic: "encode request", Err: err}
	}

	start := time.Now()
	raw, err := b.transport.Exchange(ctx, entrypoint, payload)
	elapsed := time.Since(start)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExecutionError{Model: method, Diagnostic: diagnose(exitErr), Err: err}
		}
		return nil, &ExecutionError{Model: method, Err: err}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ExecutionError{Model: method, Diagnostic: "malformed output: " + truncate(string(raw)), Err: err}
	}
	if resp.Error != "" {
		return nil, &ExecutionError{Model: method, Diagnostic: resp.Error, Err: errors.New("worker reported error")}
	}
	if len(resp.Predictions) != horizon {
		return nil, &ExecutionError{
			Model:      method,
			Diagnostic: fmt.Sprintf("malformed output: got %d predictions, want %d", len(resp.Predictions), horizon),
			Err:        errors.New("prediction count mismatch"),
		}
	}

	log.Debug().
		Str("method", method.String()).
		Int("history", len(history)).
		Dur("duration", elapsed).
		Msg("worker model completed")

	return &Output{Predictions: resp.Predictions, Metrics: resp.Metrics, Elapsed: elapsed}, nil
}

// diagnose prefers the structured error document a failing worker prints to
// stdout, then its stderr.
func diagnose(e *ExitError) string {
	var resp response
	if len(e.Stdout) > 0 && json.Unmarshal(e.Stdout, &resp) == nil && resp.Error != "" {
		return resp.Error
	}
	if len(e.Stderr) > 0 {
		return truncate(string(e.Stderr))
	}
	return e.Error()
}

const maxDiagnostic = 200

func truncate(s string) string {
	if len(s) <= maxDiagnostic {
		return s
	}
	return s[:maxDiagnostic] + "..."
}
