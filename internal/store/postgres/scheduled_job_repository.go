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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clubly/clubly/internal/scheduler"
)

// ScheduledJobRepository implements scheduler.Repository
type ScheduledJobRepository struct {
	db *DB
}

// NewScheduledJobRepository creates a new scheduled job repository
func NewScheduledJobRepository(db *DB) *ScheduledJobRepository {
	return &ScheduledJobRepository{db: db}
}

// CreateIfAbsent inserts the job row only when no row with that name
// exists. ON CONFLICT DO NOTHING keeps a persisted schedule intact
// across process restarts.
func (r *ScheduledJobRepository) CreateIfAbsent(ctx context.Context, job *scheduler.Job) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (name, interval_hours, enabled, last_run_at, next_run_at, last_outcome, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO NOTHING
	`, job.Name, job.IntervalHours, job.Enabled, job.LastRunAt, job.NextRunAt, job.LastOutcome, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled job: %w", err)
	}
	return nil
}

// Get retrieves a job by name
func (r *ScheduledJobRepository) Get(ctx context.Context, name string) (*scheduler.Job, error) {
	var job scheduler.Job
	err := r.db.pool.QueryRow(ctx, `
		SELECT name, interval_hours, enabled, last_run_at, next_run_at, last_outcome, updated_at
		FROM scheduled_jobs
		WHERE name = $1
	`, name).Scan(
		&job.Name, &job.IntervalHours, &job.Enabled, &job.LastRunAt, &job.NextRunAt, &job.LastOutcome, &job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, scheduler.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get scheduled job: %w", err)
	}
	return &job, nil
}

// Update persists job schedule bookkeeping
func (r *ScheduledJobRepository) Update(ctx context.Context, job *scheduler.Job) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE scheduled_jobs SET interval_hours = $2, enabled = $3, last_run_at = $4, next_run_at = $5, last_outcome = $6, updated_at = $7
		WHERE name = $1
	`, job.Name, job.IntervalHours, job.Enabled, job.LastRunAt, job.NextRunAt, job.LastOutcome, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update scheduled job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return scheduler.ErrJobNotFound
	}
	return nil
}

// List returns all scheduled jobs
func (r *ScheduledJobRepository) List(ctx context.Context) ([]*scheduler.Job, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT name, interval_hours, enabled, last_run_at, next_run_at, last_outcome, updated_at
		FROM scheduled_jobs
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*scheduler.Job
	for rows.Next() {
		var job scheduler.Job
		if err := rows.Scan(
			&job.Name, &job.IntervalHours, &job.Enabled, &job.LastRunAt, &job.NextRunAt, &job.LastOutcome, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
