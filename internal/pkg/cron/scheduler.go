package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a named unit of work run every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler runs registered jobs on fixed intervals until stopped.
// A job whose previous run is still in flight skips the tick.
type Scheduler struct {
	logger *slog.Logger
	jobs   []*Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	stop   sync.Once
}

// NewScheduler derives the job context from parent, so cancelling parent
// also stops the jobs. A nil logger falls back to slog.Default.
func NewScheduler(parent context.Context, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, Fn: fn})
	s.logger.Info("cron job registered", "job", name, "interval", interval.String())
}

// Start runs every job once immediately and then on its ticker.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(job)
	}
	s.logger.Info("cron scheduler started", "job_count", len(s.jobs))
}

// Stop cancels the job context and waits for in-flight runs. Safe to call twice.
func (s *Scheduler) Stop() {
	s.stop.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.logger.Info("cron scheduler stopped")
	})
}

func (s *Scheduler) loop(job *Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.execute(s.ctx, job)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute(s.ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) error {
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Warn("cron job still running, tick skipped", "job", job.Name)
		return nil
	}
	defer job.running.Store(false)

	start := time.Now()
	if err := job.Fn(ctx); err != nil {
		s.logger.Error("cron job failed", "job", job.Name, "error", err, "duration", time.Since(start).String())
		return fmt.Errorf("%s: %w", job.Name, err)
	}
	s.logger.Debug("cron job completed", "job", job.Name, "duration", time.Since(start).String())
	return nil
}

// RunOnce runs every job once in registration order and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()

	var errs []error
	for _, job := range jobs {
		if err := s.execute(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
