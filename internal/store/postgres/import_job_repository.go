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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clubly/clubly/internal/importjob"
)

// ImportJobRepository implements importjob.Repository
type ImportJobRepository struct {
	db *DB
}

// NewImportJobRepository creates a new import job repository
func NewImportJobRepository(db *DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new import job. The partial unique index on active
// jobs makes the insert the authoritative duplicate check: a concurrent
// insert for the same (tenant, kind) loses with ErrJobAlreadyActive.
func (r *ImportJobRepository) Create(ctx context.Context, job *importjob.Job) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO import_jobs (
			id, tenant_id, kind, status,
			total_estimated, processed, created_count, updated_count, error_count,
			message, log, queue_position, created_at, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		job.ID, job.TenantID, job.Kind, string(job.Status),
		job.TotalEstimated, job.Processed, job.Created, job.Updated, job.Errors,
		job.Message, job.Log, job.QueuePosition, job.CreatedAt, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return importjob.ErrJobAlreadyActive
		}
		return fmt.Errorf("failed to insert import job: %w", err)
	}
	return nil
}

// Get retrieves an import job by tenant and ID
func (r *ImportJobRepository) Get(ctx context.Context, tenantID, jobID string) (*importjob.Job, error) {
	job, err := r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, kind, status,
			total_estimated, processed, created_count, updated_count, error_count,
			message, log, queue_position, created_at, started_at, finished_at
		FROM import_jobs
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, jobID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, importjob.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

// Update persists job progress
func (r *ImportJobRepository) Update(ctx context.Context, job *importjob.Job) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE import_jobs SET
			status = $3,
			total_estimated = $4, processed = $5, created_count = $6, updated_count = $7, error_count = $8,
			message = $9, log = $10, queue_position = $11, started_at = $12, finished_at = $13
		WHERE tenant_id = $1 AND id = $2
	`,
		job.TenantID, job.ID, string(job.Status),
		job.TotalEstimated, job.Processed, job.Created, job.Updated, job.Errors,
		job.Message, job.Log, job.QueuePosition, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return importjob.ErrJobNotFound
	}
	return nil
}

// GetActive returns the queued or running job of a kind for a tenant
func (r *ImportJobRepository) GetActive(ctx context.Context, tenantID, kind string) (*importjob.Job, error) {
	job, err := r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, kind, status,
			total_estimated, processed, created_count, updated_count, error_count,
			message, log, queue_position, created_at, started_at, finished_at
		FROM import_jobs
		WHERE tenant_id = $1 AND kind = $2 AND status IN ('queued', 'running')
		ORDER BY created_at
		LIMIT 1
	`, tenantID, kind))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, importjob.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get active import job: %w", err)
	}
	return job, nil
}

// CountQueuedAhead returns how many queued jobs of any tenant were
// created before the given time
func (r *ImportJobRepository) CountQueuedAhead(ctx context.Context, createdAt time.Time) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM import_jobs
		WHERE status = 'queued' AND created_at < $1
	`, createdAt).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued import jobs: %w", err)
	}
	return n, nil
}

// List returns a tenant's import jobs, newest first
func (r *ImportJobRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*importjob.Job, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, kind, status,
			total_estimated, processed, created_count, updated_count, error_count,
			message, log, queue_position, created_at, started_at, finished_at
		FROM import_jobs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*importjob.Job
	for rows.Next() {
		job, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *ImportJobRepository) scanOne(row pgx.Row) (*importjob.Job, error) {
	var job importjob.Job
	var status string
	err := row.Scan(
		&job.ID, &job.TenantID, &job.Kind, &status,
		&job.TotalEstimated, &job.Processed, &job.Created, &job.Updated, &job.Errors,
		&job.Message, &job.Log, &job.QueuePosition, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = importjob.Status(status)
	return &job, nil
}
