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

package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/importjob"
	"github.com/clubly/clubly/internal/integration"
	"github.com/clubly/clubly/internal/observability/logger"
)

// ImportRunner executes a manually triggered bulk reconciliation for one
// tenant under an import job, so the caller can poll observable progress
// instead of waiting on the request.
type ImportRunner struct {
	reconciler  *Reconciler
	configs     integration.Repository
	tracker     *importjob.Tracker
	auditLogger audit.Logger
}

// NewImportRunner creates an import runner.
func NewImportRunner(reconciler *Reconciler, configs integration.Repository, tracker *importjob.Tracker, auditLogger audit.Logger) *ImportRunner {
	return &ImportRunner{
		reconciler:  reconciler,
		configs:     configs,
		tracker:     tracker,
		auditLogger: auditLogger,
	}
}

// Request enqueues an import for the tenant and starts the worker in the
// background. The returned job is immediately pollable.
func (r *ImportRunner) Request(ctx context.Context, tenantID, actorID string) (*importjob.Job, error) {
	cfg, err := r.configs.GetActive(ctx, tenantID, integration.SystemContracts)
	if err != nil {
		return nil, fmt.Errorf("no active integration for tenant: %w", err)
	}

	job, err := r.tracker.Enqueue(ctx, tenantID, importjob.KindReconciliation, 0)
	if err != nil {
		return nil, err
	}

	r.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeImportRequested,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: job.ID,
	})

	// The worker outlives the request; detach it from the request context.
	go r.run(context.WithoutCancel(ctx), cfg, job)

	return job, nil
}

func (r *ImportRunner) run(ctx context.Context, cfg *integration.Config, job *importjob.Job) {
	if err := r.tracker.Start(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to start import job",
			logger.Component("import"), logger.JobID(job.ID), logger.Error(err))
		return
	}

	progress := func(stats Stats, message string) {
		if err := r.tracker.ReportProgress(ctx, job, stats.Processed, stats.Created, stats.Updated, stats.Errors, message); err != nil {
			slog.ErrorContext(ctx, "failed to report import progress",
				logger.Component("import"), logger.JobID(job.ID), logger.Error(err))
		}
	}

	stats, err := r.reconciler.ReconcileTenant(ctx, cfg, progress)

	outcome := importjob.StatusCompleted
	message := fmt.Sprintf("completed: %d processed, %d created, %d updated, %d errors",
		stats.Processed, stats.Created, stats.Updated, stats.Errors)
	if err != nil {
		outcome = importjob.StatusFailed
		message = fmt.Sprintf("failed: %v", err)
	}

	if finishErr := r.tracker.Finish(ctx, job, outcome, message); finishErr != nil {
		slog.ErrorContext(ctx, "failed to finish import job",
			logger.Component("import"), logger.JobID(job.ID), logger.Error(finishErr))
	}

	r.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeImportFinished,
		TenantID: job.TenantID,
		Resource: job.ID,
		Metadata: map[string]any{"outcome": string(outcome)},
	})
}
