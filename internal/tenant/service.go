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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/id"
)

// Service provides tenant and domain binding management
type Service struct {
	repo        Repository
	bindings    BindingRepository
	cache       *DirectoryCache
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, bindings BindingRepository, cache *DirectoryCache, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		bindings:    bindings,
		cache:       cache,
		auditLogger: auditLogger,
	}
}

// CreateTenant onboards a new provider organization.
func (s *Service) CreateTenant(ctx context.Context, name, plan, actorID string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}

	now := time.Now()
	t := &Tenant{
		ID:        id.NewUUIDv7(),
		Name:      name,
		Active:    true,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  actorID,
		Resource: name,
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	if tenantID == "" {
		return nil, ErrTenantNotFound
	}
	return s.repo.GetByID(ctx, tenantID)
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// DeactivateTenant offboards a tenant. The row is kept; only the active
// flag flips, and its domain bindings are deactivated alongside so the
// hostname stops resolving.
func (s *Service) DeactivateTenant(ctx context.Context, tenantID, actorID string) error {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !t.Active {
		return nil
	}

	t.Active = false
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", err)
	}
	if err := s.bindings.DeactivateForTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to deactivate bindings: %w", err)
	}

	// Cached mappings for this tenant's hostnames must not outlive the
	// deactivation; dropping everything is cheap and correct.
	s.cache.Invalidate()

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantDeactivated,
		TenantID: tenantID,
		ActorID:  actorID,
	})

	return nil
}

// BindDomain attaches a hostname to a tenant. An active row owned by
// another tenant refuses the bind; the tenant's own inactive row is
// reactivated in place. A hostname whose only rows are another tenant's
// inactive history is free again — released domains can be handed over,
// the old rows stay behind as that tenant's audit trail.
func (s *Service) BindDomain(ctx context.Context, tenantID, hostname, kind, actorID string) (*DomainBinding, error) {
	hostname = NormalizeHostname(hostname)
	if hostname == "" {
		return nil, fmt.Errorf("hostname is required")
	}
	if kind != KindSubdomain && kind != KindCustom {
		return nil, fmt.Errorf("invalid binding kind: %s", kind)
	}
	if _, err := s.repo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	existing, err := s.bindings.GetByHostname(ctx, hostname)
	switch {
	case err == nil && existing.Active:
		if existing.TenantID != nil && *existing.TenantID == tenantID {
			return existing, nil
		}
		return nil, ErrHostnameTaken

	case err == nil && existing.TenantID != nil && *existing.TenantID == tenantID:
		existing.Active = true
		existing.Kind = kind
		existing.UpdatedAt = time.Now()
		if err := s.bindings.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate binding: %w", err)
		}
		s.cache.Invalidate(hostname)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeDomainReactivated,
			TenantID: tenantID,
			ActorID:  actorID,
			Resource: hostname,
		})
		return existing, nil

	case err == nil, errors.Is(err, ErrBindingNotFound):
		now := time.Now()
		tid := tenantID
		binding := &DomainBinding{
			ID:        id.NewUUIDv7(),
			Hostname:  hostname,
			TenantID:  &tid,
			Kind:      kind,
			Verified:  kind == KindSubdomain,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.bindings.Create(ctx, binding); err != nil {
			return nil, fmt.Errorf("failed to create binding: %w", err)
		}
		s.cache.Invalidate(hostname)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeDomainBound,
			TenantID: tenantID,
			ActorID:  actorID,
			Resource: hostname,
		})
		return binding, nil

	default:
		return nil, fmt.Errorf("failed to look up binding: %w", err)
	}
}

// UnbindDomain deactivates a hostname's binding, preserving the row for
// audit history.
func (s *Service) UnbindDomain(ctx context.Context, tenantID, hostname, actorID string) error {
	hostname = NormalizeHostname(hostname)
	binding, err := s.bindings.GetByHostname(ctx, hostname)
	if err != nil {
		return err
	}
	if binding.TenantID == nil || *binding.TenantID != tenantID {
		return ErrBindingNotFound
	}
	if !binding.Active {
		return nil
	}

	binding.Active = false
	binding.UpdatedAt = time.Now()
	if err := s.bindings.Update(ctx, binding); err != nil {
		return fmt.Errorf("failed to deactivate binding: %w", err)
	}
	s.cache.Invalidate(hostname)
	return nil
}
