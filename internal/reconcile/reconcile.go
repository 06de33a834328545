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

// Package reconcile aligns local partner activation state with the
// external contract system. Every pass is idempotent: a record is only
// written when its activation flag actually differs, so re-running at any
// interval converges without side effects.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clubly/clubly/internal/id"
	"github.com/clubly/clubly/internal/integration"
	"github.com/clubly/clubly/internal/observability/logger"
	"github.com/clubly/clubly/internal/partner"
)

// Stats summarizes one tenant's reconciliation pass.
type Stats struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Errors    int
}

// ProgressFunc receives incremental progress during a pass. Used by the
// import tracker; nil is fine for scheduled background runs.
type ProgressFunc func(stats Stats, message string)

// Reconciler runs the external sync for every tenant with an active
// integration-mode config.
type Reconciler struct {
	configs  integration.Repository
	partners partner.Repository
	fetcher  ContractFetcher
}

// NewReconciler creates a reconciler.
func NewReconciler(configs integration.Repository, partners partner.Repository, fetcher ContractFetcher) *Reconciler {
	return &Reconciler{
		configs:  configs,
		partners: partners,
		fetcher:  fetcher,
	}
}

// Run reconciles every tenant in integration mode. A tenant's fetch or
// record failures never abort the batch for the others; tenants are
// processed sequentially and reconciliation is commutative between them.
// Run is the scheduler task for the recurring reconciliation job.
func (r *Reconciler) Run(ctx context.Context) error {
	configs, err := r.configs.ListActiveByMode(ctx, integration.SystemContracts, integration.ModeIntegration)
	if err != nil {
		return fmt.Errorf("failed to list integration configs: %w", err)
	}

	var failed int
	for _, cfg := range configs {
		if _, err := r.ReconcileTenant(ctx, cfg, nil); err != nil {
			failed++
			slog.ErrorContext(ctx, "tenant reconciliation failed",
				logger.Component("reconcile"),
				logger.TenantID(cfg.TenantID),
				logger.Error(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("reconciliation finished with %d of %d tenants failed", failed, len(configs))
	}
	return nil
}

// ReconcileTenant runs one tenant's pass. The last-synced timestamp is
// bumped even when nothing changed, so operators can tell "ran and found
// nothing" from "never ran". A fetch error leaves it untouched.
func (r *Reconciler) ReconcileTenant(ctx context.Context, cfg *integration.Config, progress ProgressFunc) (Stats, error) {
	var stats Stats

	records, err := r.fetcher.FetchContracts(ctx, cfg)
	if err != nil {
		return stats, fmt.Errorf("fetch for tenant %s: %w", cfg.TenantID, err)
	}

	for _, rec := range records {
		stats.Processed++
		if err := r.reconcileRecord(ctx, cfg, rec, &stats); err != nil {
			// Counted and logged; the batch continues.
			stats.Errors++
			slog.ErrorContext(ctx, "record reconciliation failed",
				logger.Component("reconcile"),
				logger.TenantID(cfg.TenantID),
				logger.Error(err),
			)
		}
		if progress != nil && stats.Processed%progressEvery == 0 {
			progress(stats, fmt.Sprintf("processed %d of %d records", stats.Processed, len(records)))
		}
	}

	now := time.Now()
	if err := r.configs.TouchLastSynced(ctx, cfg.ID, now); err != nil {
		return stats, fmt.Errorf("failed to update last-synced timestamp: %w", err)
	}

	if progress != nil {
		progress(stats, fmt.Sprintf("finished: %d processed, %d created, %d updated, %d errors",
			stats.Processed, stats.Created, stats.Updated, stats.Errors))
	}

	slog.InfoContext(ctx, "tenant reconciliation finished",
		logger.Component("reconcile"),
		logger.TenantID(cfg.TenantID),
		logger.Processed(stats.Processed),
		slog.Int("created", stats.Created),
		slog.Int("updated", stats.Updated),
		logger.Errors(stats.Errors),
	)

	return stats, nil
}

const progressEvery = 50

func (r *Reconciler) reconcileRecord(ctx context.Context, cfg *integration.Config, rec ContractRecord, stats *Stats) error {
	email, err := deriveIdentity(rec, cfg.SystemType)
	if err != nil {
		return err
	}

	status := integration.ParseContractStatus(rec.Status)
	wantActive, known := status.WantsActive()
	if !known {
		// Unrecognized statuses are deliberately a no-op; flag them so an
		// upstream vocabulary change is visible in the logs.
		stats.Skipped++
		slog.WarnContext(ctx, "unknown contract status, no change applied",
			logger.Component("reconcile"),
			logger.TenantID(cfg.TenantID),
			logger.ExternalStatus(rec.Status),
		)
		return nil
	}

	existing, err := r.partners.GetByEmail(ctx, cfg.TenantID, email)
	switch {
	case err == nil:
		if existing.Converted {
			// The record changed role; reconciliation must not touch it.
			stats.Skipped++
			return nil
		}
		if existing.Active == wantActive {
			return nil
		}
		if err := r.partners.SetActive(ctx, cfg.TenantID, existing.ID, wantActive); err != nil {
			return fmt.Errorf("failed to set activation for %s: %w", existing.ID, err)
		}
		stats.Updated++
		return nil

	case err == partner.ErrPartnerNotFound:
		if !wantActive {
			// Nothing local to deactivate.
			stats.Skipped++
			return nil
		}
		now := time.Now()
		p := &partner.Partner{
			ID:        id.NewUUIDv7(),
			TenantID:  cfg.TenantID,
			Email:     email,
			Document:  rec.Document,
			Name:      rec.Name,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.partners.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create partner %s: %w", email, err)
		}
		stats.Created++
		return nil

	default:
		return fmt.Errorf("failed to look up partner %s: %w", email, err)
	}
}

// deriveIdentity returns the stable local key for an external record:
// the email when present, otherwise a synthetic address built from the
// document number. The synthetic form keeps document-only customers
// reconcilable, and because partner rows are tenant-scoped it cannot
// collide across tenants.
func deriveIdentity(rec ContractRecord, systemType string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if email != "" {
		return email, nil
	}
	document := strings.TrimSpace(rec.Document)
	if document == "" {
		return "", fmt.Errorf("record has neither email nor document")
	}
	return fmt.Sprintf("%s@imported.%s.local", document, systemType), nil
}
