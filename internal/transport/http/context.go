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

package http

import (
	"context"

	"github.com/clubly/clubly/internal/auth"
	"github.com/clubly/clubly/internal/tenant"
)

type contextKey string

const (
	identityKey      contextKey = "identity"
	tenantContextKey contextKey = "tenant_context"
)

// GetIdentity retrieves the verified caller identity from context.
func GetIdentity(ctx context.Context) (*auth.Identity, bool) {
	val, ok := ctx.Value(identityKey).(*auth.Identity)
	return val, ok
}

// GetTenantContext retrieves the tenant context established by the
// isolation middleware. Handlers behind the middleware can rely on
// ok being true; everything else must treat absence as a denial.
func GetTenantContext(ctx context.Context) (tenant.Context, bool) {
	val, ok := ctx.Value(tenantContextKey).(tenant.Context)
	return val, ok
}
