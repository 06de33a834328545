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
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubly/clubly/internal/importjob"
	"github.com/clubly/clubly/internal/observability/logger"
)

// importJobResponse shapes a job for polling clients, with the derived
// progress fields computed at read time.
type importJobResponse struct {
	*importjob.Job
	PercentComplete    *float64 `json:"percent_complete,omitempty"`
	EstimatedRemaining *string  `json:"estimated_remaining,omitempty"`
}

func (h *Handler) importResponse(job *importjob.Job) importJobResponse {
	resp := importJobResponse{Job: job, PercentComplete: job.PercentComplete()}
	if eta := job.EstimatedRemaining(time.Now()); eta != nil && job.Status == importjob.StatusRunning {
		s := eta.Round(time.Second).String()
		resp.EstimatedRemaining = &s
	}
	return resp
}

// RequestImport triggers a bulk reconciliation for the caller's tenant.
// The work runs in the background; the response carries the job to poll.
func (h *Handler) RequestImport(w http.ResponseWriter, r *http.Request) {
	tc, _ := GetTenantContext(r.Context())
	tenantID, ok := tc.TenantID()
	if !ok {
		respondError(w, http.StatusForbidden, msgAccessDenied)
		return
	}

	job, err := h.importRunner.Request(r.Context(), tenantID, tc.CallerID())
	if err != nil {
		switch {
		case errors.Is(err, importjob.ErrJobAlreadyActive):
			respondError(w, http.StatusConflict, "an import is already queued or running")
		default:
			slog.ErrorContext(r.Context(), "failed to request import",
				logger.TenantID(tenantID), logger.Error(err))
			respondError(w, http.StatusBadRequest, "import could not be started")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, h.importResponse(job))
}

// GetImport returns the current snapshot of one import job
func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	tc, _ := GetTenantContext(r.Context())
	tenantID, ok := tc.TenantID()
	if !ok {
		respondError(w, http.StatusForbidden, msgAccessDenied)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	job, err := h.tracker.Snapshot(r.Context(), tenantID, jobID)
	if err != nil {
		if errors.Is(err, importjob.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "import job not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to read import job",
			logger.TenantID(tenantID), logger.JobID(jobID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read import job")
		return
	}

	respondJSON(w, http.StatusOK, h.importResponse(job))
}

// ListImports returns the tenant's import jobs, newest first
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	tc, _ := GetTenantContext(r.Context())
	tenantID, ok := tc.TenantID()
	if !ok {
		respondError(w, http.StatusForbidden, msgAccessDenied)
		return
	}

	limit, offset := paginationParams(r)
	jobs, err := h.tracker.List(r.Context(), tenantID, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list import jobs",
			logger.TenantID(tenantID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list import jobs")
		return
	}

	out := make([]importJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, h.importResponse(job))
	}
	respondJSON(w, http.StatusOK, map[string]any{"imports": out})
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
