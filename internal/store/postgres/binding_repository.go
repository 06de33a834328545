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

	"github.com/clubly/clubly/internal/tenant"
)

// BindingRepository implements tenant.BindingRepository
type BindingRepository struct {
	db *DB
}

// NewBindingRepository creates a new domain binding repository
func NewBindingRepository(db *DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Create inserts a new domain binding
func (r *BindingRepository) Create(ctx context.Context, b *tenant.DomainBinding) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO domain_bindings (id, hostname, tenant_id, kind, verified, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.Hostname, b.TenantID, b.Kind, b.Verified, b.Active, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert domain binding: %w", err)
	}
	return nil
}

// GetActiveByHostname retrieves the active binding for a hostname joined
// with its tenant. The join is what lets the resolver reject bindings
// whose tenant was deactivated without a second round trip.
func (r *BindingRepository) GetActiveByHostname(ctx context.Context, hostname string) (*tenant.DomainBinding, *tenant.Tenant, error) {
	var b tenant.DomainBinding
	var t tenant.Tenant
	err := r.db.pool.QueryRow(ctx, `
		SELECT b.id, b.hostname, b.tenant_id, b.kind, b.verified, b.active, b.created_at, b.updated_at,
			t.id, t.name, t.active, t.plan, t.created_at, t.updated_at
		FROM domain_bindings b
		JOIN tenants t ON t.id = b.tenant_id
		WHERE b.hostname = $1 AND b.active
	`, hostname).Scan(
		&b.ID, &b.Hostname, &b.TenantID, &b.Kind, &b.Verified, &b.Active, &b.CreatedAt, &b.UpdatedAt,
		&t.ID, &t.Name, &t.Active, &t.Plan, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, tenant.ErrBindingNotFound
		}
		return nil, nil, fmt.Errorf("failed to get domain binding: %w", err)
	}
	return &b, &t, nil
}

// GetByHostname retrieves any binding row for a hostname regardless of
// the active flag. The newest row wins when history has several.
func (r *BindingRepository) GetByHostname(ctx context.Context, hostname string) (*tenant.DomainBinding, error) {
	var b tenant.DomainBinding
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, hostname, tenant_id, kind, verified, active, created_at, updated_at
		FROM domain_bindings
		WHERE hostname = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, hostname).Scan(&b.ID, &b.Hostname, &b.TenantID, &b.Kind, &b.Verified, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to get domain binding: %w", err)
	}
	return &b, nil
}

// Update updates a domain binding
func (r *BindingRepository) Update(ctx context.Context, b *tenant.DomainBinding) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE domain_bindings SET hostname = $2, tenant_id = $3, kind = $4, verified = $5, active = $6, updated_at = $7
		WHERE id = $1
	`, b.ID, b.Hostname, b.TenantID, b.Kind, b.Verified, b.Active, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update domain binding: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrBindingNotFound
	}
	return nil
}

// DeactivateForTenant marks all of a tenant's active bindings inactive
func (r *BindingRepository) DeactivateForTenant(ctx context.Context, tenantID string) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE domain_bindings SET active = FALSE, updated_at = NOW()
		WHERE tenant_id = $1 AND active
	`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate domain bindings: %w", err)
	}
	return nil
}
