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

	"github.com/clubly/clubly/internal/partner"
)

// PartnerRepository implements partner.Repository. Every query carries
// the tenant_id predicate; there is no unscoped variant.
type PartnerRepository struct {
	db *DB
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// Create inserts a new partner record
func (r *PartnerRepository) Create(ctx context.Context, p *partner.Partner) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO partners (id, tenant_id, email, document, name, active, converted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.TenantID, p.Email, p.Document, p.Name, p.Active, p.Converted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert partner: %w", err)
	}
	return nil
}

// GetByEmail retrieves a partner by tenant and email
func (r *PartnerRepository) GetByEmail(ctx context.Context, tenantID, email string) (*partner.Partner, error) {
	var p partner.Partner
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, document, name, active, converted, created_at, updated_at
		FROM partners
		WHERE tenant_id = $1 AND email = $2
	`, tenantID, email).Scan(
		&p.ID, &p.TenantID, &p.Email, &p.Document, &p.Name, &p.Active, &p.Converted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, partner.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a partner by tenant and ID
func (r *PartnerRepository) GetByID(ctx context.Context, tenantID, id string) (*partner.Partner, error) {
	var p partner.Partner
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, document, name, active, converted, created_at, updated_at
		FROM partners
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&p.ID, &p.TenantID, &p.Email, &p.Document, &p.Name, &p.Active, &p.Converted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, partner.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return &p, nil
}

// SetActive flips the activation flag for one record
func (r *PartnerRepository) SetActive(ctx context.Context, tenantID, partnerID string, active bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE partners SET active = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, partnerID, active)
	if err != nil {
		return fmt.Errorf("failed to update partner activation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return partner.ErrPartnerNotFound
	}
	return nil
}

// List returns a tenant's partners ordered by creation time
func (r *PartnerRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*partner.Partner, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, email, document, name, active, converted, created_at, updated_at
		FROM partners
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer rows.Close()

	var partners []*partner.Partner
	for rows.Next() {
		var p partner.Partner
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Email, &p.Document, &p.Name, &p.Active, &p.Converted, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, &p)
	}
	return partners, rows.Err()
}

// CountByTenant returns the number of partner records for a tenant
func (r *PartnerRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM partners WHERE tenant_id = $1
	`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count partners: %w", err)
	}
	return n, nil
}
