package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("cron: unknown job")

// Scheduler manages periodic job execution using cron expressions.
// A job never runs in parallel with itself: a tick that finds the previous
// run still in progress is skipped.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string]*entry
	order  []string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

type entry struct {
	job  Job
	lock sync.Mutex
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]*entry),
		logger: logger.With("component", "cron"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job. Names must be unique and schedules valid.
func (s *Scheduler) Register(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	if err := ValidateSchedule(j.Schedule()); err != nil {
		return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
	}

	s.jobs[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Start begins executing registered jobs on their schedules.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("cron: scheduler already started")
	}
	c := cron.New(cron.WithParser(parser))
	for _, name := range s.order {
		e := s.jobs[name]
		if _, err := c.AddFunc(e.job.Schedule(), func() { s.tick(e) }); err != nil {
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
	}

	s.cron = c
	c.Start()
	s.logger.Info("scheduler started", "jobs", len(s.order))
	return nil
}

func (s *Scheduler) tick(e *entry) {
	if !e.lock.TryLock() {
		s.logger.Warn("job still running, skipping tick", "job", e.job.Name())
		return
	}
	defer e.lock.Unlock()
	s.run(s.ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	name := e.job.Name()
	s.logger.Debug("job started", "job", name)
	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return err
	}
	s.logger.Debug("job completed", "job", name)
	return nil
}

// RunNow runs a job immediately. It waits for an in-progress run of the
// same job to finish first.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	return s.run(ctx, e)
}

// Stop halts scheduling and waits for in-flight jobs to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	s.cancel()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for jobs: %w", ctx.Err())
	}
}
