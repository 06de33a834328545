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

// Context is the per-request proof of which tenant (or administrative
// privilege) an operation is authorized to act as. It is a tagged variant:
// either Administrative (cross-tenant, platform operators only) or Scoped
// to exactly one tenant. Deliberately NOT a struct with a nullable tenant
// id — a missed nil check must never widen into global access.
//
// A Context is constructed only by the isolation middleware, attached to
// the request context, and never persisted or shared across requests.
type Context struct {
	kind     ctxKind
	tenantID string
	callerID string
	role     string
}

type ctxKind uint8

const (
	kindScoped ctxKind = iota
	kindAdministrative
)

// NewScoped returns a Context bound to one tenant. tenantID must be the
// resolved tenant for the request host, already checked against the
// caller's own association.
func NewScoped(tenantID, callerID, role string) Context {
	return Context{kind: kindScoped, tenantID: tenantID, callerID: callerID, role: role}
}

// NewAdministrative returns the cross-tenant Context. The only path here
// is a privileged caller on the administrative hostname.
func NewAdministrative(callerID, role string) Context {
	return Context{kind: kindAdministrative, callerID: callerID, role: role}
}

// IsAdministrative reports whether this context grants cross-tenant access.
func (c Context) IsAdministrative() bool {
	return c.kind == kindAdministrative
}

// TenantID returns the tenant the context is scoped to. ok is false for
// the administrative variant; callers issuing tenant-scoped queries must
// check it rather than filtering on an empty string.
func (c Context) TenantID() (string, bool) {
	if c.kind != kindScoped {
		return "", false
	}
	return c.tenantID, true
}

// CallerID returns the authenticated caller behind this context.
func (c Context) CallerID() string {
	return c.callerID
}

// Role returns the caller's role as asserted by the identity provider.
func (c Context) Role() string {
	return c.role
}
