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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/observability/logger"
	"github.com/clubly/clubly/internal/scheduler"
)

// Operator control surface for recurring jobs. Commands mutate the
// persisted schedule; status and history are read-only.

// ListJobs returns every registered recurring job
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.scheduler.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list jobs", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// JobStatus returns the persisted schedule snapshot plus recent run history
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, err := h.scheduler.Status(r.Context(), name)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get job status",
			logger.JobName(name), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get job status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"job":     job,
		"history": h.scheduler.History(name),
	})
}

// EnableJob arms a job
func (h *Handler) EnableJob(w http.ResponseWriter, r *http.Request) {
	h.jobCommand(w, r, "enable", http.StatusOK, h.scheduler.Enable)
}

// DisableJob stops future scheduling of a job
func (h *Handler) DisableJob(w http.ResponseWriter, r *http.Request) {
	h.jobCommand(w, r, "disable", http.StatusOK, h.scheduler.Disable)
}

// RunJob triggers an out-of-band run without touching the schedule. The
// run proceeds in the background past the request deadline; 202 tells
// the operator to poll the job status for the outcome.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	h.jobCommand(w, r, "run_now", http.StatusAccepted, h.scheduler.RunNow)
}

// ResetJob clears run bookkeeping
func (h *Handler) ResetJob(w http.ResponseWriter, r *http.Request) {
	h.jobCommand(w, r, "reset", http.StatusOK, h.scheduler.Reset)
}

// UpdateJobIntervalRequest carries the new cadence
type UpdateJobIntervalRequest struct {
	IntervalHours int `json:"interval_hours"`
}

// UpdateJobInterval changes a job's cadence
func (h *Handler) UpdateJobInterval(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req UpdateJobIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IntervalHours <= 0 {
		respondError(w, http.StatusBadRequest, "interval_hours must be positive")
		return
	}

	if err := h.scheduler.UpdateInterval(r.Context(), name, req.IntervalHours); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update job interval",
			logger.JobName(name), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update job interval")
		return
	}

	h.auditJobCommand(r, name, "update_interval", map[string]any{"interval_hours": req.IntervalHours})

	respondJSON(w, http.StatusOK, map[string]string{"message": "interval updated"})
}

// jobCommand is the shared shape of the parameterless job commands.
func (h *Handler) jobCommand(w http.ResponseWriter, r *http.Request, command string, status int, fn func(ctx context.Context, name string) error) {
	name := chi.URLParam(r, "name")

	if err := fn(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrJobNotFound), errors.Is(err, scheduler.ErrJobNotRegistered):
			respondError(w, http.StatusNotFound, "job not found")
		default:
			slog.ErrorContext(r.Context(), "job command failed",
				logger.JobName(name), logger.String("command", command), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "job command failed")
		}
		return
	}

	h.auditJobCommand(r, name, command, nil)

	respondJSON(w, status, map[string]string{"message": command + " accepted"})
}

func (h *Handler) auditJobCommand(r *http.Request, name, command string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["command"] = command

	actorID := ""
	if tc, ok := GetTenantContext(r.Context()); ok {
		actorID = tc.CallerID()
	}
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeJobCommand,
		ActorID:   actorID,
		Resource:  name,
		IPAddress: getIPAddress(r),
		Metadata:  metadata,
	})
}
