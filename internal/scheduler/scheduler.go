// Copyright 2026 The Clubly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scheduler drives named recurring jobs off persisted schedule
// state. The driving loop is a single ticker that scans for due jobs;
// because next-run timestamps live in the store, a restarted process
// picks up exactly where the previous one stopped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/clubly/clubly/internal/observability/logger"
)

const historyLimit = 20

// Scheduler maintains the registry of recurring jobs and executes them
// when due. Construct with New, register tasks, then Start.
type Scheduler struct {
	repo  Repository
	clock clock.Clock
	tick  time.Duration

	mu       sync.Mutex
	tasks    map[string]TaskFunc
	inFlight map[string]bool
	history  map[string][]RunRecord

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a scheduler scanning for due jobs every tick.
func New(repo Repository, clk clock.Clock, tick time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		repo:     repo,
		clock:    clk,
		tick:     tick,
		tasks:    make(map[string]TaskFunc),
		inFlight: make(map[string]bool),
		history:  make(map[string][]RunRecord),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Register binds a task to a job name and seeds the persisted row if it
// does not exist yet. An existing row keeps its schedule and enabled flag
// so restarts neither double-fire nor re-enable a disabled job.
func (s *Scheduler) Register(ctx context.Context, name string, intervalHours int, enabled bool, task TaskFunc) error {
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if intervalHours <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	s.mu.Lock()
	s.tasks[name] = task
	s.mu.Unlock()

	now := s.clock.Now()
	job := &Job{
		Name:          name,
		IntervalHours: intervalHours,
		Enabled:       enabled,
		NextRunAt:     &now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateIfAbsent(ctx, job); err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	return nil
}

// Start launches the driving loop. Stop terminates it; in-flight runs are
// not preempted.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := s.clock.Ticker(s.tick)
		defer ticker.Stop()

		slog.InfoContext(ctx, "scheduler started",
			logger.Component("scheduler"),
			logger.String("tick", s.tick.String()),
		)

		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
}

// Stop shuts the driving loop down and waits for it to exit.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// runDue executes every enabled job whose next run is due. Errors are
// contained per job; the loop itself must survive anything a tick throws.
func (s *Scheduler) runDue(ctx context.Context) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list scheduled jobs",
			logger.Component("scheduler"), logger.Error(err))
		return
	}

	now := s.clock.Now()
	for _, job := range jobs {
		if !job.Enabled || job.NextRunAt == nil || job.NextRunAt.After(now) {
			continue
		}
		s.execute(ctx, job.Name, true)
	}
}

// execute runs one job. Overlapping triggers for the same name are
// coalesced: if a run is in flight, the new trigger is skipped, not queued.
// reschedule controls whether next_run advances (regular ticks) or the
// standing schedule is left untouched (run_now).
func (s *Scheduler) execute(ctx context.Context, name string, reschedule bool) {
	s.mu.Lock()
	if s.inFlight[name] {
		s.mu.Unlock()
		slog.WarnContext(ctx, "job already running, skipping trigger",
			logger.Component("scheduler"), logger.JobName(name))
		return
	}
	task, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		slog.ErrorContext(ctx, "job has no registered task",
			logger.Component("scheduler"), logger.JobName(name))
		return
	}
	s.inFlight[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, name)
		s.mu.Unlock()
	}()

	started := s.clock.Now()
	slog.InfoContext(ctx, "job run started",
		logger.Component("scheduler"), logger.JobName(name))

	runErr := task(ctx)

	finished := s.clock.Now()
	outcome := OutcomeSuccess
	detail := ""
	if runErr != nil {
		outcome = OutcomeFailure
		detail = runErr.Error()
		slog.ErrorContext(ctx, "job run failed",
			logger.Component("scheduler"), logger.JobName(name), logger.Error(runErr))
	} else {
		slog.InfoContext(ctx, "job run finished",
			logger.Component("scheduler"),
			logger.JobName(name),
			logger.Duration(finished.Sub(started).Milliseconds()),
		)
	}

	s.record(RunRecord{
		JobName:    name,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Outcome:    outcome,
		Detail:     detail,
	})

	job, err := s.repo.Get(ctx, name)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load job after run",
			logger.Component("scheduler"), logger.JobName(name), logger.Error(err))
		return
	}
	job.LastRunAt = &started
	job.LastOutcome = outcome
	if reschedule {
		next := finished.Add(time.Duration(job.IntervalHours) * time.Hour)
		job.NextRunAt = &next
	}
	job.UpdatedAt = finished
	if err := s.repo.Update(ctx, job); err != nil {
		// Fatal to this tick only; the next tick retries the whole scan.
		slog.ErrorContext(ctx, "failed to persist job schedule",
			logger.Component("scheduler"), logger.JobName(name), logger.Error(err))
	}
}

func (s *Scheduler) record(rec RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[rec.JobName], rec)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	s.history[rec.JobName] = h
}

// Enable arms a job. A next-run timestamp already in the future is kept;
// otherwise the job becomes due immediately.
func (s *Scheduler) Enable(ctx context.Context, name string) error {
	job, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	job.Enabled = true
	if job.NextRunAt == nil || job.NextRunAt.Before(now) {
		job.NextRunAt = &now
	}
	job.UpdatedAt = now
	return s.repo.Update(ctx, job)
}

// Disable stops future scheduling. An in-flight run is not cancelled.
func (s *Scheduler) Disable(ctx context.Context, name string) error {
	job, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	job.Enabled = false
	job.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, job)
}

// RunNow triggers an out-of-band run without touching the standing
// schedule. Validation is synchronous; the run itself is dispatched in
// the background on a context detached from the caller's, so a run that
// outlives the request deadline is not cut off mid-flight. The outcome
// lands in the persisted job row and the run history.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	if _, err := s.repo.Get(ctx, name); err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotRegistered
	}
	go s.execute(context.WithoutCancel(ctx), name, false)
	return nil
}

// UpdateInterval changes a job's cadence and recomputes the next run from
// the last one, or now if that point has already passed.
func (s *Scheduler) UpdateInterval(ctx context.Context, name string, hours int) error {
	if hours <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	job, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	job.IntervalHours = hours
	next := now
	if job.LastRunAt != nil {
		candidate := job.LastRunAt.Add(time.Duration(hours) * time.Hour)
		if candidate.After(now) {
			next = candidate
		}
	}
	job.NextRunAt = &next
	job.UpdatedAt = now
	return s.repo.Update(ctx, job)
}

// Reset clears run bookkeeping, returning the job to a fresh armed state.
func (s *Scheduler) Reset(ctx context.Context, name string) error {
	job, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	job.LastRunAt = nil
	job.NextRunAt = &now
	job.LastOutcome = ""
	job.UpdatedAt = now
	return s.repo.Update(ctx, job)
}

// Status returns the persisted snapshot of one job.
func (s *Scheduler) Status(ctx context.Context, name string) (*Job, error) {
	return s.repo.Get(ctx, name)
}

// List returns all registered jobs.
func (s *Scheduler) List(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// History returns recent run records for a job, newest last. The history
// is held in memory only; it resets on restart while the schedule itself
// does not.
func (s *Scheduler) History(name string) []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[name]
	out := make([]RunRecord, len(h))
	copy(out, h)
	return out
}
