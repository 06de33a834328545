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
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mockBindingRepo implements BindingRepository for testing
type mockBindingRepo struct {
	mock.Mock
}

func (m *mockBindingRepo) Create(ctx context.Context, binding *DomainBinding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *mockBindingRepo) GetActiveByHostname(ctx context.Context, hostname string) (*DomainBinding, *Tenant, error) {
	args := m.Called(ctx, hostname)
	var b *DomainBinding
	var t *Tenant
	if args.Get(0) != nil {
		b = args.Get(0).(*DomainBinding)
	}
	if args.Get(1) != nil {
		t = args.Get(1).(*Tenant)
	}
	return b, t, args.Error(2)
}

func (m *mockBindingRepo) GetByHostname(ctx context.Context, hostname string) (*DomainBinding, error) {
	args := m.Called(ctx, hostname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DomainBinding), args.Error(1)
}

func (m *mockBindingRepo) Update(ctx context.Context, binding *DomainBinding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *mockBindingRepo) DeactivateForTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func activeBinding(tenantID, hostname string) *DomainBinding {
	return &DomainBinding{
		ID:       "b-" + tenantID,
		Hostname: hostname,
		TenantID: &tenantID,
		Kind:     KindSubdomain,
		Verified: true,
		Active:   true,
	}
}

// TestPurpose: Validates hostname normalization and the cache-then-store
// resolution path.
// Scope: Unit Test
// Expected: A mixed-case host with a port resolves via the store on first
// call, then via the cache without another store round-trip.
func TestTenant_Resolver_ResolvesAndCaches(t *testing.T) {
	bindings := new(mockBindingRepo)
	cache := NewDirectoryCache(5*time.Minute, clock.NewMock())
	resolver := NewResolver(bindings, cache, "admin.clubly.app")
	ctx := context.Background()

	tnt := &Tenant{ID: "t-1", Name: "Shop", Active: true}
	bindings.On("GetActiveByHostname", ctx, "shop.example.com").
		Return(activeBinding("t-1", "shop.example.com"), tnt, nil).Once()

	res, err := resolver.Resolve(ctx, "Shop.Example.com:8443")
	assert.NoError(t, err)
	assert.False(t, res.Administrative)
	assert.Equal(t, "t-1", res.TenantID)

	// Second resolution must be served from the cache; the single Once()
	// expectation above fails the test if the store is hit again.
	res, err = resolver.Resolve(ctx, "shop.example.com")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", res.TenantID)
	bindings.AssertExpectations(t)
}

// TestPurpose: Validates that the administrative hostname resolves without
// touching the cache or store.
// Scope: Unit Test
// Security: Administrative access must be explicit, never inferred from data.
// Expected: Resolution{Administrative: true} and zero repository calls.
func TestTenant_Resolver_AdministrativeHostShortCircuits(t *testing.T) {
	bindings := new(mockBindingRepo)
	cache := NewDirectoryCache(5*time.Minute, clock.NewMock())
	resolver := NewResolver(bindings, cache, "Admin.Clubly.App")

	res, err := resolver.Resolve(context.Background(), "admin.clubly.app:443")
	assert.NoError(t, err)
	assert.True(t, res.Administrative)
	assert.Empty(t, res.TenantID)
	bindings.AssertNotCalled(t, "GetActiveByHostname", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that an unknown hostname is a hard not-found.
// Scope: Unit Test
// Security: Requests that cannot be tenant-scoped must be rejected, never
// silently served in a global mode.
// Expected: ErrBindingNotFound, and the absence is not cached.
func TestTenant_Resolver_UnknownHostNotFoundAndNotCached(t *testing.T) {
	bindings := new(mockBindingRepo)
	cache := NewDirectoryCache(5*time.Minute, clock.NewMock())
	resolver := NewResolver(bindings, cache, "admin.clubly.app")
	ctx := context.Background()

	bindings.On("GetActiveByHostname", ctx, "unknown.example.com").
		Return(nil, nil, ErrBindingNotFound).Twice()

	_, err := resolver.Resolve(ctx, "unknown.example.com")
	assert.ErrorIs(t, err, ErrBindingNotFound)
	assert.Equal(t, 0, cache.Len(), "negative results must not be cached")

	// A second call goes back to the store (Twice() above enforces it),
	// so a domain registered in between becomes visible promptly.
	_, err = resolver.Resolve(ctx, "unknown.example.com")
	assert.ErrorIs(t, err, ErrBindingNotFound)
	bindings.AssertExpectations(t)
}

// TestPurpose: Validates that tenant inactivity overrides binding activity.
// Scope: Unit Test
// Security: An offboarded tenant's still-active binding row must not grant
// resolution.
// Expected: ErrBindingNotFound for an inactive tenant's active binding.
func TestTenant_Resolver_InactiveTenantOverridesActiveBinding(t *testing.T) {
	bindings := new(mockBindingRepo)
	cache := NewDirectoryCache(5*time.Minute, clock.NewMock())
	resolver := NewResolver(bindings, cache, "admin.clubly.app")
	ctx := context.Background()

	inactive := &Tenant{ID: "t-gone", Name: "Gone", Active: false}
	bindings.On("GetActiveByHostname", ctx, "gone.example.com").
		Return(activeBinding("t-gone", "gone.example.com"), inactive, nil)

	_, err := resolver.Resolve(ctx, "gone.example.com")
	assert.ErrorIs(t, err, ErrBindingNotFound)
	assert.Equal(t, 0, cache.Len())
}

// TestPurpose: Validates cache coherence after explicit invalidation.
// Scope: Unit Test
// Expected: After Invalidate(), Resolve reflects current store state even
// though the TTL has not elapsed.
func TestTenant_Resolver_InvalidateForcesStoreRead(t *testing.T) {
	bindings := new(mockBindingRepo)
	cache := NewDirectoryCache(5*time.Minute, clock.NewMock())
	resolver := NewResolver(bindings, cache, "admin.clubly.app")
	ctx := context.Background()

	first := &Tenant{ID: "t-1", Name: "Shop", Active: true}
	bindings.On("GetActiveByHostname", ctx, "shop.example.com").
		Return(activeBinding("t-1", "shop.example.com"), first, nil).Once()

	_, err := resolver.Resolve(ctx, "shop.example.com")
	assert.NoError(t, err)

	// The store now maps the hostname to a different tenant.
	second := &Tenant{ID: "t-2", Name: "Rebound", Active: true}
	bindings.On("GetActiveByHostname", ctx, "shop.example.com").
		Return(activeBinding("t-2", "shop.example.com"), second, nil).Once()

	cache.Invalidate()

	res, err := resolver.Resolve(ctx, "shop.example.com")
	assert.NoError(t, err)
	assert.Equal(t, "t-2", res.TenantID)
	bindings.AssertExpectations(t)
}
