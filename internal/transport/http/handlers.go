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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/auth"
	"github.com/clubly/clubly/internal/importjob"
	"github.com/clubly/clubly/internal/partner"
	"github.com/clubly/clubly/internal/reconcile"
	"github.com/clubly/clubly/internal/scheduler"
	"github.com/clubly/clubly/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	verifier      *auth.Verifier
	resolver      *tenant.Resolver
	tenantService *tenant.Service
	scheduler     *scheduler.Scheduler
	importRunner  *reconcile.ImportRunner
	tracker       *importjob.Tracker
	partners      partner.Repository
	auditLogger   audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	verifier *auth.Verifier,
	resolver *tenant.Resolver,
	tenantService *tenant.Service,
	sched *scheduler.Scheduler,
	importRunner *reconcile.ImportRunner,
	tracker *importjob.Tracker,
	partners partner.Repository,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		verifier:      verifier,
		resolver:      resolver,
		tenantService: tenantService,
		scheduler:     sched,
		importRunner:  importRunner,
		tracker:       tracker,
		partners:      partners,
		auditLogger:   auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes: everything below is authenticated and runs behind the
	// isolation middleware. There is no tenant-agnostic data surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Use(h.TenantContextMiddleware)

		// Administrative realm (platform operators only)
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdministrative)

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.ListJobs)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", h.JobStatus)
					r.Post("/enable", h.EnableJob)
					r.Post("/disable", h.DisableJob)
					r.Post("/run", h.RunJob)
					r.Post("/reset", h.ResetJob)
					r.Put("/interval", h.UpdateJobInterval)
				})
			})

			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", h.ListTenants)
				r.Post("/", h.CreateTenant)
				r.Route("/{tenantID}", func(r chi.Router) {
					r.Get("/", h.GetTenant)
					r.Post("/deactivate", h.DeactivateTenant)
					r.Post("/domains", h.BindDomain)
					r.Delete("/domains/{hostname}", h.UnbindDomain)
				})
			})
		})

		// Tenant-scoped surface
		r.Group(func(r chi.Router) {
			r.Use(RequireTenant)

			r.Post("/imports", h.RequestImport)
			r.Get("/imports", h.ListImports)
			r.Get("/imports/{jobID}", h.GetImport)

			r.Get("/partners", h.ListPartners)
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "clubly",
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
