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
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/auth"
	"github.com/clubly/clubly/internal/observability/logger"
	"github.com/clubly/clubly/internal/tenant"
)

// Tenancy Principles:
// 1. Tenant context is derived EXCLUSIVELY from the request hostname.
// 2. The administrative realm is a distinct context variant, never a
//    tenant with special privileges.
// 3. A caller's tenant claim must match the resolved tenant; cross-tenant
//    access exists only through the administrative hostname.
//
// Anti-Patterns (FORBIDDEN):
// - Tenant selection via headers or query parameters
// - Magic tenant IDs (e.g., "default", "system", "platform")
// - Empty tenant_id implying platform privileges

// The refusal bodies are deliberately identical for every rejection
// reason so a probing client cannot distinguish "unknown host" from
// "host exists but is not yours". The audit log carries the difference.
const (
	msgTenantUndetermined = "tenant could not be determined"
	msgAccessDenied       = "access denied"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware verifies the bearer token and attaches the caller
// identity to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		identity, err := h.verifier.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantContextMiddleware resolves the request hostname to a realm and
// establishes the tenant context every downstream data access scopes by.
// It must run after AuthMiddleware.
//
// All three refusal paths return a generic body; only the audit trail
// distinguishes them. The middleware performs no store writes.
func (h *Handler) TenantContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		hostname := tenant.NormalizeHostname(r.Host)
		resolution, err := h.resolver.Resolve(r.Context(), r.Host)
		if err != nil {
			if !errors.Is(err, tenant.ErrBindingNotFound) {
				// Store trouble, not an unknown hostname; don't let an
				// outage read as a flood of bad hostnames.
				slog.ErrorContext(r.Context(), "tenant resolution failed",
					logger.Hostname(hostname), logger.Error(err))
				respondError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeResolutionFailed,
				ActorID:   identity.UserID,
				Resource:  hostname,
				IPAddress: getIPAddress(r),
			})
			respondError(w, http.StatusBadRequest, msgTenantUndetermined)
			return
		}

		var tc tenant.Context
		if resolution.Administrative {
			if identity.Role != auth.RolePlatformAdmin {
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeAdminDenied,
					ActorID:   identity.UserID,
					Resource:  hostname,
					IPAddress: getIPAddress(r),
					Metadata:  map[string]any{"role": identity.Role},
				})
				respondError(w, http.StatusForbidden, msgAccessDenied)
				return
			}
			tc = tenant.NewAdministrative(identity.UserID, identity.Role)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeAdminGranted,
				ActorID:   identity.UserID,
				Resource:  hostname,
				IPAddress: getIPAddress(r),
			})
		} else {
			// Cross-tenant access never happens here, not even for
			// platform admins: their path is the administrative hostname.
			if identity.TenantID == nil || *identity.TenantID != resolution.TenantID {
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeIsolationDenied,
					TenantID:  resolution.TenantID,
					ActorID:   identity.UserID,
					Resource:  hostname,
					IPAddress: getIPAddress(r),
				})
				respondError(w, http.StatusForbidden, msgAccessDenied)
				return
			}
			tc = tenant.NewScoped(resolution.TenantID, identity.UserID, identity.Role)
		}

		ctx := context.WithValue(r.Context(), tenantContextKey, tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdministrative refuses any request whose tenant context is not
// the administrative variant.
func RequireAdministrative(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := GetTenantContext(r.Context())
		if !ok || !tc.IsAdministrative() {
			respondError(w, http.StatusForbidden, msgAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant refuses any request whose tenant context is not scoped to
// a tenant. Administrative callers use their own surface; they do not
// browse tenant data through tenant endpoints.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := GetTenantContext(r.Context())
		if !ok {
			respondError(w, http.StatusForbidden, msgAccessDenied)
			return
		}
		if _, scoped := tc.TenantID(); !scoped {
			respondError(w, http.StatusForbidden, msgAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}
