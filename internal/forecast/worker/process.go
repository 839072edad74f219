package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
)

// ExitError is returned by ProcessTransport when the worker exits non-zero or
// is killed. Stdout and Stderr hold everything the process wrote.
type ExitError struct {
	Entrypoint string
	Stdout     []byte
	Stderr     []byte
	TimedOut   bool
	Err        error
}

func (e *ExitError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("worker %s timed out", e.Entrypoint)
	}
	return fmt.Sprintf("worker %s exited: %v", e.Entrypoint, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ProcessTransport runs one OS process per call. The entry point name is
// appended to the configured arguments.
type ProcessTransport struct {
	command string
	args    []string
	dir     string
	env     []string
	timeout time.Duration
	sem     *semaphore.Weighted
}

func NewProcessTransport(cfg config.WorkerConfig) *ProcessTransport {
	limit := int64(cfg.MaxConcurrent)
	if limit <= 0 {
		limit = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ProcessTransport{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		dir:     cfg.Dir,
		timeout: timeout,
		sem:     semaphore.NewWeighted(limit),
	}
}

// WithEnv returns a copy of the transport whose processes get env appended to
// the inherited environment.
func (t *ProcessTransport) WithEnv(env ...string) *ProcessTransport {
	cp := *t
	cp.env = append(append([]string(nil), t.env...), env...)
	return &cp
}

// Check verifies that the worker command is on PATH and that any script
// argument exists, resolving relative scripts against the working directory
// the worker runs in.
func (t *ProcessTransport) Check() error {
	if _, err := exec.LookPath(t.command); err != nil {
		return fmt.Errorf("worker command %q: %w", t.command, err)
	}
	for _, arg := range t.args {
		if !strings.HasSuffix(arg, ".py") {
			continue
		}
		path := arg
		if !filepath.IsAbs(path) && t.dir != "" {
			path = filepath.Join(t.dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("worker script: %w", err)
		}
	}
	return nil
}

func (t *ProcessTransport) Exchange(ctx context.Context, entrypoint string, payload []byte) ([]byte, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for worker slot: %w", err)
	}
	defer t.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := append(append([]string(nil), t.args...), entrypoint)
	cmd := exec.CommandContext(ctx, t.command, args...)
	cmd.Dir = t.dir
	if len(t.env) > 0 {
		cmd.Env = append(cmd.Environ(), t.env...)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.As(err, &exitErr) {
			return nil, &ExitError{
				Entrypoint: entrypoint,
				Stdout:     stdout.Bytes(),
				Stderr:     stderr.Bytes(),
				TimedOut:   errors.Is(ctx.Err(), context.DeadlineExceeded),
				Err:        err,
			}
		}
		return nil, fmt.Errorf("start worker %s: %w", entrypoint, err)
	}

	return stdout.Bytes(), nil
}
