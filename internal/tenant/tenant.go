package tenant

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrBindingNotFound = errors.New("domain binding not found")
	ErrHostnameTaken   = errors.New("hostname already bound")
)

// Tenant represents one provider organization sharing the platform.
// A tenant is never deleted, only deactivated.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Binding kinds
const (
	KindSubdomain      = "subdomain"
	KindCustom         = "custom"
	KindAdministrative = "administrative"
)

// DomainBinding maps a hostname to exactly one tenant. Bindings are
// deactivated, not deleted, when a tenant changes domains so the history
// stays auditable. The administrative kind carries no tenant.
type DomainBinding struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	TenantID  *string   `json:"tenant_id,omitempty"`
	Kind      string    `json:"kind"`
	Verified  bool      `json:"verified"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}

// BindingRepository defines the interface for domain binding storage
type BindingRepository interface {
	Create(ctx context.Context, binding *DomainBinding) error
	// GetActiveByHostname returns the active binding for a hostname joined
	// with its tenant, or ErrBindingNotFound.
	GetActiveByHostname(ctx context.Context, hostname string) (*DomainBinding, *Tenant, error)
	// GetByHostname returns any binding row for a hostname regardless of
	// the active flag, used to reactivate instead of inserting duplicates.
	GetByHostname(ctx context.Context, hostname string) (*DomainBinding, error)
	Update(ctx context.Context, binding *DomainBinding) error
	// DeactivateForTenant marks all of a tenant's active bindings inactive.
	DeactivateForTenant(ctx context.Context, tenantID string) error
}
