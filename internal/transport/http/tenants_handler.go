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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubly/clubly/internal/observability/logger"
	"github.com/clubly/clubly/internal/tenant"
)

// Administrative tenant lifecycle surface. Every handler here sits behind
// RequireAdministrative; the caller is a platform operator by the time
// these run.

// CreateTenantRequest represents tenant onboarding data
type CreateTenantRequest struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
}

// CreateTenant onboards a new provider organization
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Plan == "" {
		req.Plan = "standard"
	}

	tc, _ := GetTenantContext(r.Context())
	t, err := h.tenantService.CreateTenant(r.Context(), req.Name, req.Plan, tc.CallerID())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// GetTenant retrieves one tenant
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get tenant")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// ListTenants lists tenants with pagination
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	tenants, err := h.tenantService.ListTenants(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// DeactivateTenant offboards a tenant; its hostnames stop resolving
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	tc, _ := GetTenantContext(r.Context())

	if err := h.tenantService.DeactivateTenant(r.Context(), tenantID, tc.CallerID()); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to deactivate tenant",
			logger.TenantID(tenantID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to deactivate tenant")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "tenant deactivated"})
}

// BindDomainRequest represents a domain binding request
type BindDomainRequest struct {
	Hostname string `json:"hostname"`
	Kind     string `json:"kind"`
}

// BindDomain attaches a hostname to a tenant
func (h *Handler) BindDomain(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req BindDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tc, _ := GetTenantContext(r.Context())
	binding, err := h.tenantService.BindDomain(r.Context(), tenantID, req.Hostname, req.Kind, tc.CallerID())
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, "tenant not found")
		case errors.Is(err, tenant.ErrHostnameTaken):
			respondError(w, http.StatusConflict, "hostname already bound to another tenant")
		default:
			respondError(w, http.StatusBadRequest, "invalid domain binding")
		}
		return
	}

	respondJSON(w, http.StatusCreated, binding)
}

// UnbindDomain deactivates a hostname binding
func (h *Handler) UnbindDomain(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	hostname := chi.URLParam(r, "hostname")

	tc, _ := GetTenantContext(r.Context())
	if err := h.tenantService.UnbindDomain(r.Context(), tenantID, hostname, tc.CallerID()); err != nil {
		if errors.Is(err, tenant.ErrBindingNotFound) {
			respondError(w, http.StatusNotFound, "binding not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to unbind domain",
			logger.TenantID(tenantID), logger.Hostname(hostname), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to unbind domain")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "domain unbound"})
}
