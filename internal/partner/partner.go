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

// Package partner holds the per-tenant customer/partner records whose
// activation flag external reconciliation converges on.
package partner

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var ErrPartnerNotFound = errors.New("partner not found")

// Partner is one local customer record within a tenant. Email is the
// stable reconciliation key; when the external system has none, a
// synthetic address derived from the document number fills in. Converted
// marks records whose role changed to a managing partner — reconciliation
// must never touch those.
type Partner struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Document  string    `json:"document,omitempty"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Converted bool      `json:"converted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for partner storage. Every method is
// tenant-scoped; there is no cross-tenant read or write.
type Repository interface {
	Create(ctx context.Context, p *Partner) error
	GetByEmail(ctx context.Context, tenantID, email string) (*Partner, error)
	GetByID(ctx context.Context, tenantID, id string) (*Partner, error)
	// SetActive flips the activation flag for one record.
	SetActive(ctx context.Context, tenantID, partnerID string, active bool) error
	List(ctx context.Context, tenantID string, limit, offset int) ([]*Partner, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}
