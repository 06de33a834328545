package importjob

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrJobNotFound       = errors.New("import job not found")
	ErrJobAlreadyActive  = errors.New("an import of this kind is already queued or running")
	ErrInvalidTransition = errors.New("invalid import job state transition")
	ErrCounterRegression = errors.New("import job counters must not decrease")
)

// Status values. Transitions are one-directional:
// queued → running → {completed, failed}. Terminal rows are audit
// records and never mutate again.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Kinds of bulk operations tracked as import jobs.
const (
	KindReconciliation = "reconciliation"
)

// Job represents one bulk reconciliation/import execution with queryable
// progress.
type Job struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Kind           string     `json:"kind"`
	Status         Status     `json:"status"`
	TotalEstimated int        `json:"total_estimated"`
	Processed      int        `json:"processed"`
	Created        int        `json:"created"`
	Updated        int        `json:"updated"`
	Errors         int        `json:"errors"`
	Message        string     `json:"message,omitempty"`
	Log            []string   `json:"log,omitempty"`
	QueuePosition  int        `json:"queue_position,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// PercentComplete returns progress in [0,100], or nil when the total is
// unknown and a percentage would be meaningless.
func (j *Job) PercentComplete() *float64 {
	if j.TotalEstimated <= 0 {
		return nil
	}
	pct := float64(j.Processed) / float64(j.TotalEstimated) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &pct
}

// EstimatedRemaining projects time to completion from throughput observed
// so far. nil when the job has not started, has processed nothing yet, or
// the total is unknown.
func (j *Job) EstimatedRemaining(now time.Time) *time.Duration {
	if j.StartedAt == nil || j.Processed <= 0 || j.TotalEstimated <= 0 {
		return nil
	}
	remaining := j.TotalEstimated - j.Processed
	if remaining <= 0 {
		d := time.Duration(0)
		return &d
	}
	elapsed := now.Sub(*j.StartedAt)
	if elapsed <= 0 {
		return nil
	}
	d := time.Duration(float64(elapsed) / float64(j.Processed) * float64(remaining))
	return &d
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Repository defines the interface for import job persistence. Reads are
// tenant-scoped like every other store access.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, tenantID, jobID string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	// GetActive returns the queued or running job of a kind for a tenant,
	// or ErrJobNotFound.
	GetActive(ctx context.Context, tenantID, kind string) (*Job, error)
	// CountQueuedAhead returns how many queued jobs of any tenant were
	// created before the given time, for the queue-position field.
	CountQueuedAhead(ctx context.Context, createdAt time.Time) (int, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*Job, error)
}
