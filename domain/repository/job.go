package repository

import (
	"context"
	"encoding/json"
	"time"

	"contentpilot/domain/model"
)

// CreateJobOptions are the optional knobs of IJob.CreateJob.
type CreateJobOptions struct {
	Priority     int
	ScheduledFor *time.Time
	MaxAttempts  int // defaults to 3 when zero
}

// IJob defines the job store contract. ReserveNextJob is the single
// mutual-exclusion primitive the dispatchers build on.
type IJob interface {
	// CreateJob inserts a pending row and returns its id.
	CreateJob(ctx context.Context, userID string, jobType model.JobType, payload json.RawMessage, opts CreateJobOptions) (string, error)
	// ReserveNextJob atomically claims the eligible pending job with highest
	// priority (ties broken by most recent created_at) and flips it to
	// processing. Returns nil when no job is eligible. Concurrent callers
	// never receive the same job.
	ReserveNextJob(ctx context.Context) (*model.Job, error)
	// UpdateJobStatus transitions processing -> completed|failed and stamps
	// completed_at.
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, jobErr *string) error
	// IncrementJobAttempts bumps the retry counter; callers decide whether to
	// recycle the job back to pending afterward.
	IncrementJobAttempts(ctx context.Context, jobID string) error
	// RescheduleJob flips a processing job back to pending with an optional
	// not-before time, provided the retry budget is not exhausted.
	RescheduleJob(ctx context.Context, jobID string, notBefore *time.Time) error
	// DeleteJob removes a row; used by producers rolling back side effects.
	DeleteJob(ctx context.Context, jobID string) error
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
}
