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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/auth"
	"github.com/clubly/clubly/internal/config"
	"github.com/clubly/clubly/internal/importjob"
	"github.com/clubly/clubly/internal/observability/logger"
	"github.com/clubly/clubly/internal/observability/metrics"
	"github.com/clubly/clubly/internal/observability/tracing"
	"github.com/clubly/clubly/internal/reconcile"
	"github.com/clubly/clubly/internal/scheduler"
	"github.com/clubly/clubly/internal/store/postgres"
	"github.com/clubly/clubly/internal/tenant"
	transportHTTP "github.com/clubly/clubly/internal/transport/http"
)

const reconcileJobName = "reconcile_contracts"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting clubly platform core")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	_, err = metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepository(db)
	bindingRepo := postgres.NewBindingRepository(db)
	partnerRepo := postgres.NewPartnerRepository(db)
	integrationRepo := postgres.NewIntegrationRepository(db)
	scheduledJobRepo := postgres.NewScheduledJobRepository(db)
	importJobRepo := postgres.NewImportJobRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Tenant resolution
	directoryCache := tenant.NewDirectoryCache(cfg.Tenancy.DirectoryCacheTTL, nil)
	resolver := tenant.NewResolver(bindingRepo, directoryCache, cfg.Tenancy.AdminHostname)
	tenantService := tenant.NewService(tenantRepo, bindingRepo, directoryCache, auditLogger)

	// Reconciliation
	contractClient := reconcile.NewClient(cfg.Reconcile.FetchTimeout, cfg.Reconcile.RetryCount)
	reconciler := reconcile.NewReconciler(integrationRepo, partnerRepo, contractClient)
	tracker := importjob.NewTracker(importJobRepo, nil)
	importRunner := reconcile.NewImportRunner(reconciler, integrationRepo, tracker, auditLogger)

	// Scheduler
	sched := scheduler.New(scheduledJobRepo, nil, cfg.Scheduler.TickInterval)
	if err := sched.Register(ctx, reconcileJobName, cfg.Reconcile.DefaultIntervalHours, cfg.Scheduler.Enabled,
		reconciler.Run,
	); err != nil {
		slog.Error("failed to register reconciliation job", logger.Error(err))
		os.Exit(1)
	}
	sched.Start(ctx)

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		verifier,
		resolver,
		tenantService,
		sched,
		importRunner,
		tracker,
		partnerRepo,
		auditLogger,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown: stop accepting requests, then stop the scheduler
	// so no job run is cut off mid-write.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	sched.Stop()

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
