package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// TestHelperProcess is not a real test. It is executed as the worker process
// by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	entrypoint := os.Args[len(os.Args)-1]

	switch os.Getenv("HELPER_MODE") {
	case "ok":
		var req request
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			fmt.Fprintf(os.Stderr, "bad request: %v", err)
			os.Exit(2)
		}
		var sum float64
		for _, p := range req.HistoricalData {
			sum += float64(p.Quantity)
		}
		avg := sum / float64(len(req.HistoricalData))
		resp := response{Metrics: Metrics{MAE: &avg}}
		for i := 1; i <= req.Horizon; i++ {
			resp.Predictions = append(resp.Predictions, Prediction{Period: i, Date: entrypoint, Predicted: avg})
		}
		_ = json.NewEncoder(os.Stdout).Encode(resp)
		os.Exit(0)
	case "error":
		_, _ = io.Copy(io.Discard, os.Stdin)
		fmt.Fprint(os.Stdout, `{"error":"singular matrix","traceback":"Traceback ..."}`)
		os.Exit(1)
	case "stderr":
		fmt.Fprint(os.Stderr, "ImportError: No module named xgboost")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
	os.Exit(4)
}

func helperTransport(mode string, timeout time.Duration) *ProcessTransport {
	return NewProcessTransport(config.WorkerConfig{
		Command:       os.Args[0],
		Args:          []string{"-test.run=TestHelperProcess", "--"},
		Timeout:       timeout,
		MaxConcurrent: 2,
	}).WithEnv("GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode)
}

func TestProcessTransportRoundTrip(t *testing.T) {
	bridge := NewBridge(helperTransport("ok", 10*time.Second))
	out, err := bridge.Invoke(context.Background(), domain.MethodLinearRegression, history(4), 5)
	require.NoError(t, err)

	require.Len(t, out.Predictions, 5)
	for i, p := range out.Predictions {
		assert.Equal(t, i+1, p.Period)
		assert.Equal(t, "linear_regression", p.Date)
		assert.InDelta(t, 2.5, p.Predicted, 1e-9)
	}
}

func TestProcessTransportErrorDocument(t *testing.T) {
	_, err := helperTransport("error", 10*time.Second).Exchange(context.Background(), "xgboost_model", []byte(`{}`))
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.False(t, exitErr.TimedOut)
	assert.Contains(t, string(exitErr.Stdout), "singular matrix")

	bridge := NewBridge(helperTransport("error", 10*time.Second))
	_, err = bridge.Invoke(context.Background(), domain.MethodXGBoost, history(3), 2)
	assert.ErrorIs(t, err, domain.ErrModelExecutionFailed)
	assert.Contains(t, err.Error(), "singular matrix")
}

func TestProcessTransportStderr(t *testing.T) {
	bridge := NewBridge(helperTransport("stderr", 10*time.Second))
	_, err := bridge.Invoke(context.Background(), domain.MethodLSTM, history(3), 2)
	assert.ErrorIs(t, err, domain.ErrModelExecutionFailed)
	assert.Contains(t, err.Error(), "No module named xgboost")
}

func TestProcessTransportTimeout(t *testing.T) {
	start := time.Now()
	_, err := helperTransport("sleep", 200*time.Millisecond).Exchange(context.Background(), "xgboost_model", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 8*time.Second)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.True(t, exitErr.TimedOut)
}

func TestProcessTransportMissingBinary(t *testing.T) {
	tr := NewProcessTransport(config.WorkerConfig{Command: "/nonexistent/worker-binary", Timeout: time.Second})
	_, err := NewBridge(tr).Invoke(context.Background(), domain.MethodXGBoost, history(3), 2)
	assert.ErrorIs(t, err, domain.ErrModelExecutionFailed)
}

func TestProcessTransportCheck(t *testing.T) {
	missing := NewProcessTransport(config.WorkerConfig{Command: "stockcast-no-such-worker"})
	assert.Error(t, missing.Check())

	dir := t.TempDir()
	transport := NewProcessTransport(config.WorkerConfig{
		Command: os.Args[0],
		Args:    []string{"run_model.py"},
		Dir:     dir,
	})
	assert.Error(t, transport.Check())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "run_model.py"), []byte("print('ok')\n"), 0o644))
	assert.NoError(t, transport.Check())

	assert.NoError(t, helperTransport("ok", time.Second).Check())
}
