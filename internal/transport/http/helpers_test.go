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
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/clubly/clubly/internal/audit"
	"github.com/clubly/clubly/internal/auth"
	"github.com/clubly/clubly/internal/importjob"
	"github.com/clubly/clubly/internal/integration"
	"github.com/clubly/clubly/internal/partner"
	"github.com/clubly/clubly/internal/reconcile"
	"github.com/clubly/clubly/internal/scheduler"
	"github.com/clubly/clubly/internal/tenant"
)

const (
	testSecret    = "test-secret"
	testIssuer    = "clubly-test"
	testAdminHost = "admin.clubly.test"
)

// signToken issues a bearer token the way the external identity provider
// would.
func signToken(t *testing.T, userID, role string, tenantID *string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iss":  testIssuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if tenantID != nil {
		claims["tenant_id"] = *tenantID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func strptr(s string) *string { return &s }

// fakeBindingRepo serves hostname lookups from a fixed map. Setting err
// makes every lookup fail, standing in for a store outage.
type fakeBindingRepo struct {
	err      error
	bindings map[string]struct {
		binding *tenant.DomainBinding
		tenant  *tenant.Tenant
	}
}

func newFakeBindingRepo() *fakeBindingRepo {
	return &fakeBindingRepo{bindings: make(map[string]struct {
		binding *tenant.DomainBinding
		tenant  *tenant.Tenant
	})}
}

func (r *fakeBindingRepo) add(hostname, tenantID, tenantName string) {
	tid := tenantID
	r.bindings[hostname] = struct {
		binding *tenant.DomainBinding
		tenant  *tenant.Tenant
	}{
		binding: &tenant.DomainBinding{ID: "b-" + tenantID, Hostname: hostname, TenantID: &tid, Kind: tenant.KindSubdomain, Active: true},
		tenant:  &tenant.Tenant{ID: tenantID, Name: tenantName, Active: true},
	}
}

func (r *fakeBindingRepo) Create(ctx context.Context, b *tenant.DomainBinding) error { return nil }
func (r *fakeBindingRepo) GetActiveByHostname(ctx context.Context, hostname string) (*tenant.DomainBinding, *tenant.Tenant, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	entry, ok := r.bindings[hostname]
	if !ok {
		return nil, nil, tenant.ErrBindingNotFound
	}
	return entry.binding, entry.tenant, nil
}
func (r *fakeBindingRepo) GetByHostname(ctx context.Context, hostname string) (*tenant.DomainBinding, error) {
	entry, ok := r.bindings[hostname]
	if !ok {
		return nil, tenant.ErrBindingNotFound
	}
	return entry.binding, nil
}
func (r *fakeBindingRepo) Update(ctx context.Context, b *tenant.DomainBinding) error       { return nil }
func (r *fakeBindingRepo) DeactivateForTenant(ctx context.Context, tenantID string) error { return nil }

// fakeTenantRepo is an in-memory tenant store.
type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[string]*tenant.Tenant)}
}

func (r *fakeTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.tenants[t.ID] = &c
	return nil
}

func (r *fakeTenantRepo) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeTenantRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	c := *t
	r.tenants[t.ID] = &c
	return nil
}

func (r *fakeTenantRepo) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tenant.Tenant
	for _, t := range r.tenants {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// recordingAudit captures audit events for assertions.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAudit) Log(ctx context.Context, event audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAudit) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeSchedulerRepo is an in-memory scheduled job store.
type fakeSchedulerRepo struct {
	mu   sync.Mutex
	jobs map[string]*scheduler.Job
}

func newFakeSchedulerRepo() *fakeSchedulerRepo {
	return &fakeSchedulerRepo{jobs: make(map[string]*scheduler.Job)}
}

func (r *fakeSchedulerRepo) CreateIfAbsent(ctx context.Context, job *scheduler.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; !ok {
		c := *job
		r.jobs[job.Name] = &c
	}
	return nil
}

func (r *fakeSchedulerRepo) Get(ctx context.Context, name string) (*scheduler.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[name]
	if !ok {
		return nil, scheduler.ErrJobNotFound
	}
	c := *job
	return &c, nil
}

func (r *fakeSchedulerRepo) Update(ctx context.Context, job *scheduler.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; !ok {
		return scheduler.ErrJobNotFound
	}
	c := *job
	r.jobs[job.Name] = &c
	return nil
}

func (r *fakeSchedulerRepo) List(ctx context.Context) ([]*scheduler.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*scheduler.Job
	for _, job := range r.jobs {
		c := *job
		out = append(out, &c)
	}
	return out, nil
}

// fakeImportRepo is an in-memory import job store.
type fakeImportRepo struct {
	mu   sync.Mutex
	jobs map[string]*importjob.Job
}

func newFakeImportRepo() *fakeImportRepo {
	return &fakeImportRepo{jobs: make(map[string]*importjob.Job)}
}

func cloneImportJob(j *importjob.Job) *importjob.Job {
	c := *j
	c.Log = append([]string(nil), j.Log...)
	return &c
}

func (r *fakeImportRepo) Create(ctx context.Context, job *importjob.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Mirrors the store's partial unique index on active (tenant, kind) rows.
	for _, existing := range r.jobs {
		if existing.TenantID == job.TenantID && existing.Kind == job.Kind && !existing.IsTerminal() {
			return importjob.ErrJobAlreadyActive
		}
	}
	r.jobs[job.ID] = cloneImportJob(job)
	return nil
}

func (r *fakeImportRepo) Get(ctx context.Context, tenantID, jobID string) (*importjob.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return nil, importjob.ErrJobNotFound
	}
	return cloneImportJob(job), nil
}

func (r *fakeImportRepo) Update(ctx context.Context, job *importjob.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return importjob.ErrJobNotFound
	}
	r.jobs[job.ID] = cloneImportJob(job)
	return nil
}

func (r *fakeImportRepo) GetActive(ctx context.Context, tenantID, kind string) (*importjob.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.TenantID == tenantID && job.Kind == kind && !job.IsTerminal() {
			return cloneImportJob(job), nil
		}
	}
	return nil, importjob.ErrJobNotFound
}

func (r *fakeImportRepo) CountQueuedAhead(ctx context.Context, createdAt time.Time) (int, error) {
	return 0, nil
}

func (r *fakeImportRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*importjob.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*importjob.Job
	for _, job := range r.jobs {
		if job.TenantID == tenantID {
			out = append(out, cloneImportJob(job))
		}
	}
	return out, nil
}

// fakeConfigRepo serves integration configs for the import runner.
type fakeConfigRepo struct {
	configs map[string]*integration.Config
}

func (r *fakeConfigRepo) GetActive(ctx context.Context, tenantID, systemType string) (*integration.Config, error) {
	cfg, ok := r.configs[tenantID]
	if !ok {
		return nil, integration.ErrConfigNotFound
	}
	return cfg, nil
}

func (r *fakeConfigRepo) ListActiveByMode(ctx context.Context, systemType, mode string) ([]*integration.Config, error) {
	var out []*integration.Config
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (r *fakeConfigRepo) TouchLastSynced(ctx context.Context, configID string, at time.Time) error {
	return nil
}

// fakePartnerRepo serves a fixed partner list.
type fakePartnerRepo struct {
	mu       sync.Mutex
	partners map[string][]*partner.Partner
}

func (r *fakePartnerRepo) Create(ctx context.Context, p *partner.Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.partners == nil {
		r.partners = make(map[string][]*partner.Partner)
	}
	r.partners[p.TenantID] = append(r.partners[p.TenantID], p)
	return nil
}

func (r *fakePartnerRepo) GetByEmail(ctx context.Context, tenantID, email string) (*partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.partners[tenantID] {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, partner.ErrPartnerNotFound
}

func (r *fakePartnerRepo) GetByID(ctx context.Context, tenantID, id string) (*partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.partners[tenantID] {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, partner.ErrPartnerNotFound
}

func (r *fakePartnerRepo) SetActive(ctx context.Context, tenantID, partnerID string, active bool) error {
	return nil
}

func (r *fakePartnerRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*partner.Partner(nil), r.partners[tenantID]...), nil
}

func (r *fakePartnerRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.partners[tenantID]), nil
}

// fakeFetcher returns a fixed contract set.
type fakeFetcher struct {
	records []reconcile.ContractRecord
}

func (f *fakeFetcher) FetchContracts(ctx context.Context, cfg *integration.Config) ([]reconcile.ContractRecord, error) {
	return f.records, nil
}

// testEnv wires a full router against in-memory stores.
type testEnv struct {
	router     *chi.Mux
	bindings   *fakeBindingRepo
	audit      *recordingAudit
	scheduler  *scheduler.Scheduler
	schedRepo  *fakeSchedulerRepo
	importRepo *fakeImportRepo
	configs    *fakeConfigRepo
	partners   *fakePartnerRepo
	tracker    *importjob.Tracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bindings := newFakeBindingRepo()
	bindings.add("acme.clubly.test", "t-acme", "Acme Benefits")
	bindings.add("globex.clubly.test", "t-globex", "Globex Club")

	auditLog := &recordingAudit{}
	cache := tenant.NewDirectoryCache(5*time.Minute, clock.New())
	resolver := tenant.NewResolver(bindings, cache, testAdminHost)
	verifier := auth.NewVerifier(testSecret, testIssuer)

	schedRepo := newFakeSchedulerRepo()
	sched := scheduler.New(schedRepo, clock.New(), time.Minute)
	require.NoError(t, sched.Register(context.Background(), "reconcile_contracts", 24, true,
		func(ctx context.Context) error { return nil }))

	importRepo := newFakeImportRepo()
	tracker := importjob.NewTracker(importRepo, clock.New())

	partners := &fakePartnerRepo{}
	configs := &fakeConfigRepo{configs: map[string]*integration.Config{
		"t-acme": {ID: "cfg-1", TenantID: "t-acme", SystemType: integration.SystemContracts,
			BaseURL: "http://upstream.test", ActivationMode: integration.ModeIntegration, Active: true},
	}}
	reconciler := reconcile.NewReconciler(configs, partners, &fakeFetcher{})
	runner := reconcile.NewImportRunner(reconciler, configs, tracker, auditLog)

	tenantRepo := newFakeTenantRepo()
	tenantService := tenant.NewService(tenantRepo, bindings, cache, auditLog)

	h := NewHandler(verifier, resolver, tenantService, sched, runner, tracker, partners, auditLog)
	router := NewRouter(h, NewRateLimiter(1000, 1000))

	return &testEnv{
		router:     router,
		bindings:   bindings,
		audit:      auditLog,
		scheduler:  sched,
		schedRepo:  schedRepo,
		importRepo: importRepo,
		configs:    configs,
		partners:   partners,
		tracker:    tracker,
	}
}
