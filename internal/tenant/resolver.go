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
	"net"
	"strings"
)

// Resolution is the outcome of mapping a request hostname to a realm.
type Resolution struct {
	Administrative bool
	TenantID       string
	TenantName     string
}

// Resolver maps inbound hostnames to tenants, consulting the directory
// cache before the store. The administrative hostname short-circuits both.
type Resolver struct {
	bindings      BindingRepository
	cache         *DirectoryCache
	adminHostname string
}

// NewResolver creates a resolver for the configured administrative hostname.
func NewResolver(bindings BindingRepository, cache *DirectoryCache, adminHostname string) *Resolver {
	return &Resolver{
		bindings:      bindings,
		cache:         cache,
		adminHostname: NormalizeHostname(adminHostname),
	}
}

// NormalizeHostname strips any port and lowercases a request host so that
// "Shop.Example.com:8443" and "shop.example.com" resolve identically.
func NormalizeHostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSpace(host))
}

// Resolve maps a hostname to the administrative realm or a tenant.
//
// An unknown hostname returns ErrBindingNotFound; callers must reject the
// request rather than fall back to any global mode. An inactive tenant
// resolves as not found even when its binding row is still active —
// tenant inactivity always overrides.
func (r *Resolver) Resolve(ctx context.Context, host string) (Resolution, error) {
	hostname := NormalizeHostname(host)
	if hostname == "" {
		return Resolution{}, ErrBindingNotFound
	}

	if hostname == r.adminHostname {
		return Resolution{Administrative: true}, nil
	}

	if entry, ok := r.cache.Lookup(hostname); ok {
		return Resolution{TenantID: entry.TenantID, TenantName: entry.TenantName}, nil
	}

	binding, t, err := r.bindings.GetActiveByHostname(ctx, hostname)
	if err != nil {
		if errors.Is(err, ErrBindingNotFound) {
			// Absence is not cached: an admin may register this domain at
			// any moment and it has to take effect promptly.
			return Resolution{}, ErrBindingNotFound
		}
		return Resolution{}, fmt.Errorf("failed to resolve hostname: %w", err)
	}
	if binding.TenantID == nil || t == nil || !t.Active {
		return Resolution{}, ErrBindingNotFound
	}

	r.cache.Put(hostname, DirectoryEntry{TenantID: t.ID, TenantName: t.Name})

	return Resolution{TenantID: t.ID, TenantName: t.Name}, nil
}
