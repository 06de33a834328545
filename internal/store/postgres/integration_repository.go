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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clubly/clubly/internal/integration"
)

// IntegrationRepository implements integration.Repository
type IntegrationRepository struct {
	db *DB
}

// NewIntegrationRepository creates a new integration config repository
func NewIntegrationRepository(db *DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// GetActive retrieves the active config for a tenant and system type
func (r *IntegrationRepository) GetActive(ctx context.Context, tenantID, systemType string) (*integration.Config, error) {
	var c integration.Config
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, system_type, base_url, auth_token, activation_mode, active, last_synced_at, created_at, updated_at
		FROM integration_configs
		WHERE tenant_id = $1 AND system_type = $2 AND active
	`, tenantID, systemType).Scan(
		&c.ID, &c.TenantID, &c.SystemType, &c.BaseURL, &c.AuthToken,
		&c.ActivationMode, &c.Active, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, integration.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get integration config: %w", err)
	}
	return &c, nil
}

// ListActiveByMode returns every tenant's active config in the given
// activation mode. This is the one deliberately cross-tenant read in the
// store; only the reconciliation job uses it.
func (r *IntegrationRepository) ListActiveByMode(ctx context.Context, systemType, mode string) ([]*integration.Config, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, system_type, base_url, auth_token, activation_mode, active, last_synced_at, created_at, updated_at
		FROM integration_configs
		WHERE system_type = $1 AND activation_mode = $2 AND active
		ORDER BY tenant_id
	`, systemType, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to list integration configs: %w", err)
	}
	defer rows.Close()

	var configs []*integration.Config
	for rows.Next() {
		var c integration.Config
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.SystemType, &c.BaseURL, &c.AuthToken,
			&c.ActivationMode, &c.Active, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan integration config: %w", err)
		}
		configs = append(configs, &c)
	}
	return configs, rows.Err()
}

// TouchLastSynced records a successful reconciliation pass
func (r *IntegrationRepository) TouchLastSynced(ctx context.Context, configID string, at time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE integration_configs SET last_synced_at = $2, updated_at = $2
		WHERE id = $1
	`, configID, at)
	if err != nil {
		return fmt.Errorf("failed to update last synced: %w", err)
	}
	if result.RowsAffected() == 0 {
		return integration.ErrConfigNotFound
	}
	return nil
}
