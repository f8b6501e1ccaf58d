package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"

	"github.com/google/uuid"
)

const jobColumns = `id, user_id, type, payload, status, priority, attempts, max_attempts,
	scheduled_for, started_at, completed_at, result, error, created_at, updated_at`

// JobRepository implements the job store on PostgreSQL (native sql.DB).
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository { return &JobRepository{db: db} }

func (r *JobRepository) CreateJob(ctx context.Context, userID string, jobType model.JobType, payload json.RawMessage, opts repository.CreateJobOptions) (string, error) {
	if !jobType.Valid() {
		return "", fmt.Errorf("unknown job type: %s", jobType)
	}
	if userID == "" {
		return "", errors.New("userID required")
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	q := `INSERT INTO jobs (id, user_id, type, payload, status, priority, attempts, max_attempts, scheduled_for, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,'pending',$5,0,$6,$7,$8,$8)`
	if _, err := r.db.ExecContext(ctx, q, id, userID, string(jobType), []byte(payload), opts.Priority, maxAttempts, opts.ScheduledFor, now); err != nil {
		return "", fmt.Errorf("inserting job failed: %w", err)
	}
	return id, nil
}

// ReserveNextJob claims one eligible pending job in a single statement. The
// inner SELECT takes a row lock and skips rows locked by concurrent callers,
// so N reservers never observe the same job. Ordering is priority first, then
// most recent creation time among equals.
func (r *JobRepository) ReserveNextJob(ctx context.Context) (*model.Job, error) {
	q := `UPDATE jobs SET status='processing', started_at=now(), updated_at=now()
		  WHERE id = (
			SELECT id FROM jobs
			WHERE status='pending' AND (scheduled_for IS NULL OR scheduled_for <= now())
			ORDER BY priority DESC, created_at DESC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		  )
		  RETURNING ` + jobColumns
	job, err := scanJob(r.db.QueryRowContext(ctx, q))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reserving job failed: %w", err)
	}
	return job, nil
}

func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, jobErr *string) error {
	var res interface{}
	if len(result) > 0 {
		res = []byte(result)
	}
	q := `UPDATE jobs SET status=$1, result=$2, error=$3, completed_at=$4, updated_at=now() WHERE id=$5`
	var completedAt *time.Time
	if status == model.JobStatusCompleted || status == model.JobStatusFailed {
		now := time.Now().UTC()
		completedAt = &now
	}
	_, err := r.db.ExecContext(ctx, q, string(status), res, jobErr, completedAt, jobID)
	return err
}

func (r *JobRepository) IncrementJobAttempts(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET attempts=attempts+1, updated_at=now() WHERE id=$1`, jobID)
	return err
}

// RescheduleJob recycles a processing job back to pending. The attempts guard
// keeps a job that exhausted its budget from ever re-entering the queue.
func (r *JobRepository) RescheduleJob(ctx context.Context, jobID string, notBefore *time.Time) error {
	q := `UPDATE jobs SET status='pending', scheduled_for=$1, updated_at=now()
		  WHERE id=$2 AND status='processing' AND attempts < max_attempts`
	res, err := r.db.ExecContext(ctx, q, notBefore, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s not reschedulable", jobID)
	}
	return nil
}

func (r *JobRepository) DeleteJob(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id=$1`, jobID)
	return err
}

func (r *JobRepository) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id=$1`
	return scanJob(r.db.QueryRowContext(ctx, q, jobID))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	j := &model.Job{}
	var (
		payload, result []byte
		scheduledFor    sql.NullTime
		startedAt       sql.NullTime
		completedAt     sql.NullTime
		jobErr          sql.NullString
	)
	err := row.Scan(&j.ID, &j.UserID, &j.Type, &payload, &j.Status, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &scheduledFor, &startedAt, &completedAt,
		&result, &jobErr, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	if len(result) > 0 {
		j.Result = json.RawMessage(result)
	}
	if scheduledFor.Valid {
		j.ScheduledFor = &scheduledFor.Time
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	if jobErr.Valid {
		j.Error = &jobErr.String
	}
	return j, nil
}

var _ repository.IJob = (*JobRepository)(nil)
