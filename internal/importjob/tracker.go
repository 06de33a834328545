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

// Package importjob tracks bulk import executions as a persisted state
// machine with queryable, eventually consistent progress.
package importjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/clubly/clubly/internal/id"
)

// Tracker owns import job state transitions. Workers mutate jobs only
// through it; readers poll snapshots without holding any lock.
type Tracker struct {
	repo  Repository
	clock clock.Clock
}

// NewTracker creates a tracker.
func NewTracker(repo Repository, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{repo: repo, clock: clk}
}

// Enqueue creates a queued job. A tenant may have at most one queued or
// running job of a given kind; a duplicate request is refused, not queued
// behind the active one. The pre-check below only produces the friendly
// fast path — the store's unique constraint on active jobs is the
// authority, so two concurrent requests cannot both create a job.
func (t *Tracker) Enqueue(ctx context.Context, tenantID, kind string, totalEstimated int) (*Job, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}

	if _, err := t.repo.GetActive(ctx, tenantID, kind); err == nil {
		return nil, ErrJobAlreadyActive
	} else if err != ErrJobNotFound {
		return nil, fmt.Errorf("failed to check active jobs: %w", err)
	}

	now := t.clock.Now()
	ahead, err := t.repo.CountQueuedAhead(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute queue position: %w", err)
	}

	job := &Job{
		ID:             id.NewUUIDv7(),
		TenantID:       tenantID,
		Kind:           kind,
		Status:         StatusQueued,
		TotalEstimated: totalEstimated,
		QueuePosition:  ahead + 1,
		CreatedAt:      now,
		Log:            []string{fmt.Sprintf("queued at %s", now.UTC().Format(time.RFC3339))},
	}
	if err := t.repo.Create(ctx, job); err != nil {
		if errors.Is(err, ErrJobAlreadyActive) {
			return nil, ErrJobAlreadyActive
		}
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}
	return job, nil
}

// Start transitions queued→running and stamps the start time.
func (t *Tracker) Start(ctx context.Context, job *Job) error {
	if job.Status != StatusQueued {
		return fmt.Errorf("%w: cannot start job in status %s", ErrInvalidTransition, job.Status)
	}
	now := t.clock.Now()
	job.Status = StatusRunning
	job.StartedAt = &now
	job.QueuePosition = 0
	job.Message = "running"
	job.Log = append(job.Log, fmt.Sprintf("started at %s", now.UTC().Format(time.RFC3339)))
	return t.repo.Update(ctx, job)
}

// ReportProgress updates a running job's counters and appends the message
// to the job log. Counters are monotonically non-decreasing while the job
// runs; a regression indicates a worker bug and is refused.
func (t *Tracker) ReportProgress(ctx context.Context, job *Job, processed, created, updated, errCount int, message string) error {
	if job.Status != StatusRunning {
		return fmt.Errorf("%w: cannot report progress in status %s", ErrInvalidTransition, job.Status)
	}
	if processed < job.Processed || created < job.Created || updated < job.Updated || errCount < job.Errors {
		return ErrCounterRegression
	}

	job.Processed = processed
	job.Created = created
	job.Updated = updated
	job.Errors = errCount
	if message != "" {
		job.Message = message
		job.Log = append(job.Log, message)
	}
	return t.repo.Update(ctx, job)
}

// Finish transitions running→{completed,failed}. The row becomes an
// immutable audit record afterwards.
func (t *Tracker) Finish(ctx context.Context, job *Job, outcome Status, message string) error {
	if job.Status != StatusRunning {
		return fmt.Errorf("%w: cannot finish job in status %s", ErrInvalidTransition, job.Status)
	}
	if outcome != StatusCompleted && outcome != StatusFailed {
		return fmt.Errorf("%w: invalid outcome %s", ErrInvalidTransition, outcome)
	}
	now := t.clock.Now()
	job.Status = outcome
	job.FinishedAt = &now
	if message != "" {
		job.Message = message
		job.Log = append(job.Log, message)
	}
	return t.repo.Update(ctx, job)
}

// Snapshot returns a job's current state. The read is eventually
// consistent with the latest progress report; pollers must tolerate
// slightly stale percentages.
func (t *Tracker) Snapshot(ctx context.Context, tenantID, jobID string) (*Job, error) {
	return t.repo.Get(ctx, tenantID, jobID)
}

// List returns a tenant's import jobs, newest first.
func (t *Tracker) List(ctx context.Context, tenantID string, limit, offset int) ([]*Job, error) {
	return t.repo.List(ctx, tenantID, limit, offset)
}
