// Package scheduler runs the forecasting batch jobs on cron triggers.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
)

// Scheduler owns one named cron entry per job.
type Scheduler struct {
	cron    *cron.Cron
	jobs    *Jobs
	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(cfg config.SchedulerConfig, jobs *Jobs) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load scheduler timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{})),
		),
		jobs:    jobs,
		entries: make(map[string]cron.EntryID),
	}
	specs := map[string]string{
		JobDaily:    cfg.DailyCron,
		JobWeekly:   cfg.WeeklyCron,
		JobLowStock: cfg.LowStockCron,
		JobExpiry:   cfg.ExpiryCron,
	}
	for name, spec := range specs {
		if spec == "" {
			continue
		}
		if err := s.add(name, spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string) error {
	id, err := s.cron.AddFunc(spec, func() { s.run(name) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) run(name string) {
	if _, err := s.jobs.Trigger(s.jobContext(), name); err != nil {
		log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
	}
}

// jobContext is the context of the current Start. It is cancelled when Stop
// gives up waiting.
func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Start begins firing triggers. Calling Start twice is a no-op. Each Start
// gets a fresh job context, so a scheduler stopped on a deadline can be
// restarted.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	log.Info().Strs("jobs", s.Names()).Msg("scheduler started")
}

// Stop halts the triggers and waits for running jobs until ctx is done, after
// which running jobs are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		cancel()
		log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Names lists the scheduled job names.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next fire time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
