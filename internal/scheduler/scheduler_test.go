package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJobRepo is an in-memory Repository standing in for the store.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*Job)}
}

func (r *fakeJobRepo) CreateIfAbsent(ctx context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; ok {
		return nil
	}
	clone := *job
	r.jobs[job.Name] = &clone
	return nil
}

func (r *fakeJobRepo) Get(ctx context.Context, name string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[name]
	if !ok {
		return nil, ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) Update(ctx context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; !ok {
		return ErrJobNotFound
	}
	clone := *job
	r.jobs[job.Name] = &clone
	return nil
}

func (r *fakeJobRepo) List(ctx context.Context) ([]*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		clone := *job
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeJobRepo) seed(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.Name] = &clone
}

type countingTask struct {
	mu   sync.Mutex
	runs int
}

func (t *countingTask) run(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++
	return nil
}

func (t *countingTask) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

// TestPurpose: Validates crash-safe resumption: a persisted next-run in the
// past fires exactly once on restart, then computes a future next-run.
// Scope: Unit Test
// Expected: One execution after the first tick, no duplicate on the second,
// next_run pushed a full interval into the future.
func TestScheduler_PersistedPastNextRun_FiresOnce(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	now := clk.Now()

	// Simulate the schedule a crashed process left behind.
	past := now.Add(-2 * time.Hour)
	repo.seed(&Job{
		Name:          "reconcile",
		IntervalHours: 24,
		Enabled:       true,
		LastRunAt:     &past,
		NextRunAt:     &past,
	})

	task := &countingTask{}
	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "reconcile", 24, true, task.run))

	// Register must not clobber the persisted schedule.
	job, err := repo.Get(context.Background(), "reconcile")
	require.NoError(t, err)
	assert.Equal(t, past.Unix(), job.NextRunAt.Unix())

	s.Start(context.Background())
	defer s.Stop()

	// Let the loop install its ticker before advancing the mock clock.
	time.Sleep(10 * time.Millisecond)

	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return task.count() == 1 }, time.Second, 5*time.Millisecond)

	clk.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, task.count(), "no duplicate fire before the new next_run")

	job, err = repo.Get(context.Background(), "reconcile")
	require.NoError(t, err)
	require.NotNil(t, job.NextRunAt)
	assert.True(t, job.NextRunAt.After(clk.Now()), "next_run must be in the future")
	assert.Equal(t, OutcomeSuccess, job.LastOutcome)
}

// TestPurpose: Validates that a disabled job is never picked up by the loop.
// Scope: Unit Test
// Expected: Zero executions across several ticks.
func TestScheduler_DisabledJobDoesNotRun(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	past := clk.Now().Add(-time.Hour)
	repo.seed(&Job{Name: "reconcile", IntervalHours: 1, Enabled: false, NextRunAt: &past})

	task := &countingTask{}
	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "reconcile", 1, false, task.run))

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(10 * time.Millisecond)
	clk.Add(3 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, task.count())
}

// TestPurpose: Validates Enable semantics: arming computes next_run=now
// unless an already-future next_run is persisted.
// Scope: Unit Test
func TestScheduler_Enable(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	s := New(repo, clk, time.Minute)
	ctx := context.Background()

	t.Run("DueImmediately_WhenNoFutureRun", func(t *testing.T) {
		repo.seed(&Job{Name: "a", IntervalHours: 1, Enabled: false})
		require.NoError(t, s.Enable(ctx, "a"))
		job, _ := repo.Get(ctx, "a")
		assert.True(t, job.Enabled)
		require.NotNil(t, job.NextRunAt)
		assert.Equal(t, clk.Now().Unix(), job.NextRunAt.Unix())
	})

	t.Run("PreservesFutureRun", func(t *testing.T) {
		future := clk.Now().Add(3 * time.Hour)
		repo.seed(&Job{Name: "b", IntervalHours: 1, Enabled: false, NextRunAt: &future})
		require.NoError(t, s.Enable(ctx, "b"))
		job, _ := repo.Get(ctx, "b")
		assert.Equal(t, future.Unix(), job.NextRunAt.Unix())
	})
}

// TestPurpose: Validates interval updates recompute next_run from last_run,
// falling back to now when that point already elapsed.
// Scope: Unit Test
func TestScheduler_UpdateInterval(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	s := New(repo, clk, time.Minute)
	ctx := context.Background()

	t.Run("FromLastRun", func(t *testing.T) {
		last := clk.Now().Add(-time.Hour)
		repo.seed(&Job{Name: "a", IntervalHours: 24, Enabled: true, LastRunAt: &last})
		require.NoError(t, s.UpdateInterval(ctx, "a", 6))
		job, _ := repo.Get(ctx, "a")
		assert.Equal(t, 6, job.IntervalHours)
		assert.Equal(t, last.Add(6*time.Hour).Unix(), job.NextRunAt.Unix())
	})

	t.Run("ElapsedBecomesNow", func(t *testing.T) {
		last := clk.Now().Add(-10 * time.Hour)
		repo.seed(&Job{Name: "b", IntervalHours: 24, Enabled: true, LastRunAt: &last})
		require.NoError(t, s.UpdateInterval(ctx, "b", 6))
		job, _ := repo.Get(ctx, "b")
		assert.Equal(t, clk.Now().Unix(), job.NextRunAt.Unix())
	})

	t.Run("RejectsNonPositive", func(t *testing.T) {
		assert.Error(t, s.UpdateInterval(ctx, "a", 0))
	})
}

// TestPurpose: Validates that RunNow executes out of band without moving
// the standing schedule.
// Scope: Unit Test
func TestScheduler_RunNow_LeavesScheduleAlone(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	future := clk.Now().Add(5 * time.Hour)
	repo.seed(&Job{Name: "reconcile", IntervalHours: 24, Enabled: true, NextRunAt: &future})

	task := &countingTask{}
	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "reconcile", 24, true, task.run))

	require.NoError(t, s.RunNow(context.Background(), "reconcile"))
	require.Eventually(t, func() bool { return task.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		job, err := repo.Get(context.Background(), "reconcile")
		return err == nil && job.LastRunAt != nil
	}, time.Second, 5*time.Millisecond, "the run must be persisted")

	job, _ := repo.Get(context.Background(), "reconcile")
	assert.Equal(t, future.Unix(), job.NextRunAt.Unix(), "run_now must not reschedule")
	assert.Equal(t, OutcomeSuccess, job.LastOutcome)
}

// TestPurpose: Validates that an operator-triggered run is detached from
// the caller's context: cancelling the request must not abort the run or
// record a spurious failure.
// Scope: Unit Test
func TestScheduler_RunNow_OutlivesCallerContext(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	repo.seed(&Job{Name: "reconcile", IntervalHours: 24, Enabled: true})

	callerCtx, cancel := context.WithCancel(context.Background())
	seen := make(chan error, 1)
	task := func(ctx context.Context) error {
		// Hold the run until the caller is gone, then report what the
		// run's own context says.
		<-callerCtx.Done()
		seen <- ctx.Err()
		return ctx.Err()
	}

	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "reconcile", 24, true, task))

	require.NoError(t, s.RunNow(callerCtx, "reconcile"))
	cancel()

	select {
	case err := <-seen:
		assert.NoError(t, err, "the run's context must outlive the caller's")
	case <-time.After(time.Second):
		t.Fatal("run did not finish")
	}

	require.Eventually(t, func() bool {
		job, err := repo.Get(context.Background(), "reconcile")
		return err == nil && job.LastOutcome == OutcomeSuccess
	}, time.Second, 5*time.Millisecond)
}

// TestPurpose: Validates that overlapping triggers for one job coalesce
// (skip, not queue) while a run is in flight.
// Scope: Unit Test
func TestScheduler_OverlappingRunsCoalesce(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	repo.seed(&Job{Name: "slow", IntervalHours: 1, Enabled: true})

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var runs int
	var mu sync.Mutex
	task := func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		started <- struct{}{}
		<-release
		return nil
	}

	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "slow", 1, true, task))

	require.NoError(t, s.RunNow(context.Background(), "slow"))
	<-started

	// Second trigger while the first is still running: skipped. The
	// sleep lets the dispatched goroutine reach the in-flight check
	// before the first run is released.
	require.NoError(t, s.RunNow(context.Background(), "slow"))
	time.Sleep(20 * time.Millisecond)
	close(release)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()
}

// TestPurpose: Validates that a failing task records a failure outcome and
// keeps the schedule (and the loop) alive.
// Scope: Unit Test
func TestScheduler_TaskFailureIsNotFatal(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	past := clk.Now().Add(-time.Hour)
	repo.seed(&Job{Name: "flaky", IntervalHours: 1, Enabled: true, NextRunAt: &past})

	calls := &countingTask{}
	task := func(ctx context.Context) error {
		_ = calls.run(ctx)
		return errors.New("external system down")
	}

	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "flaky", 1, true, task))
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(10 * time.Millisecond)
	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return calls.count() == 1 }, time.Second, 5*time.Millisecond)

	job, err := repo.Get(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, job.LastOutcome)
	require.NotNil(t, job.NextRunAt)
	assert.True(t, job.NextRunAt.After(clk.Now()), "failed run still reschedules")

	// Next interval elapses: the loop is still alive and fires again.
	clk.Add(61 * time.Minute)
	require.Eventually(t, func() bool { return calls.count() == 2 }, time.Second, 5*time.Millisecond)
}

// TestPurpose: Validates Reset clears bookkeeping into a fresh armed state.
// Scope: Unit Test
func TestScheduler_Reset(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	last := clk.Now().Add(-time.Hour)
	next := clk.Now().Add(23 * time.Hour)
	repo.seed(&Job{
		Name: "reconcile", IntervalHours: 24, Enabled: true,
		LastRunAt: &last, NextRunAt: &next, LastOutcome: OutcomeFailure,
	})

	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Reset(context.Background(), "reconcile"))

	job, _ := repo.Get(context.Background(), "reconcile")
	assert.Nil(t, job.LastRunAt)
	assert.Empty(t, job.LastOutcome)
	require.NotNil(t, job.NextRunAt)
	assert.Equal(t, clk.Now().Unix(), job.NextRunAt.Unix())
}

// TestPurpose: Validates history retention and unknown-job errors.
// Scope: Unit Test
func TestScheduler_HistoryAndErrors(t *testing.T) {
	repo := newFakeJobRepo()
	clk := clock.NewMock()
	repo.seed(&Job{Name: "reconcile", IntervalHours: 24, Enabled: true})

	task := &countingTask{}
	s := New(repo, clk, time.Minute)
	require.NoError(t, s.Register(context.Background(), "reconcile", 24, true, task.run))

	require.NoError(t, s.RunNow(context.Background(), "reconcile"))
	require.Eventually(t, func() bool { return len(s.History("reconcile")) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.RunNow(context.Background(), "reconcile"))
	require.Eventually(t, func() bool { return len(s.History("reconcile")) == 2 }, time.Second, 5*time.Millisecond)

	h := s.History("reconcile")
	assert.Equal(t, OutcomeSuccess, h[0].Outcome)

	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.Enable(context.Background(), "missing"), ErrJobNotFound)
}
