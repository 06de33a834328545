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
	"log/slog"
	"net/http"

	"github.com/clubly/clubly/internal/observability/logger"
)

// ListPartners returns the caller tenant's partner records. The tenant id
// comes from the isolation context, never from the request.
func (h *Handler) ListPartners(w http.ResponseWriter, r *http.Request) {
	tc, _ := GetTenantContext(r.Context())
	tenantID, ok := tc.TenantID()
	if !ok {
		respondError(w, http.StatusForbidden, msgAccessDenied)
		return
	}

	limit, offset := paginationParams(r)
	partners, err := h.partners.List(r.Context(), tenantID, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list partners",
			logger.TenantID(tenantID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list partners")
		return
	}

	total, err := h.partners.CountByTenant(r.Context(), tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to count partners",
			logger.TenantID(tenantID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list partners")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"partners": partners,
		"total":    total,
	})
}
