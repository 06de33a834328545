package scheduler

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrJobNotFound      = errors.New("scheduled job not found")
	ErrJobNotRegistered = errors.New("no task registered for job")
)

// Run outcomes recorded after each execution.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Job is a named recurring task. Schedule bookkeeping (LastRunAt,
// NextRunAt) is persisted so a process restart resumes the correct
// schedule instead of firing immediately or drifting. Jobs are never
// deleted; disabling clears Enabled without erasing history.
type Job struct {
	Name          string     `json:"name"`
	IntervalHours int        `json:"interval_hours"`
	Enabled       bool       `json:"enabled"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastOutcome   string     `json:"last_outcome,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RunRecord is one completed execution, kept for the operator history view.
type RunRecord struct {
	JobName    string        `json:"job_name"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ms"`
	Outcome    string        `json:"outcome"`
	Detail     string        `json:"detail,omitempty"`
}

// Repository defines the interface for scheduled job persistence
type Repository interface {
	// CreateIfAbsent inserts the job row only when no row with that name
	// exists, preserving a persisted schedule across restarts.
	CreateIfAbsent(ctx context.Context, job *Job) error
	Get(ctx context.Context, name string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	List(ctx context.Context) ([]*Job, error)
}

// TaskFunc is the work a job performs. A returned error marks the run as
// failed but never stops the schedule.
type TaskFunc func(ctx context.Context) error
