package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"
	"contentpilot/infrastructure/logger"
)

// JobHandler executes one reserved job. The returned payload is stored in the
// job's result column; a returned error is classified by the dispatcher into
// retry-or-fail.
type JobHandler interface {
	Handle(ctx context.Context, job *model.Job) (json.RawMessage, error)
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job *model.Job) (json.RawMessage, error)

func (f JobHandlerFunc) Handle(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	return f(ctx, job)
}

const maxRetryDelay = time.Hour

// RetryDelay returns the wait before retry number attempt (1-based). The base
// doubles each attempt with up to 50% jitter so herds of failed jobs spread
// out, capped at an hour.
func RetryDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 30 * time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base << (attempt - 1)
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

// Dispatcher reserves pending jobs and routes them to registered handlers.
// The handler set is closed at startup; a reserved job whose type has no
// handler is failed immediately rather than silently dropped or retried.
type Dispatcher struct {
	jobRepo   repository.IJob
	handlers  map[model.JobType]JobHandler
	baseDelay time.Duration
	now       func() time.Time
}

func NewDispatcher(jobRepo repository.IJob, baseDelay time.Duration) *Dispatcher {
	if baseDelay <= 0 {
		baseDelay = 30 * time.Second
	}
	return &Dispatcher{
		jobRepo:   jobRepo,
		handlers:  make(map[model.JobType]JobHandler),
		baseDelay: baseDelay,
		now:       time.Now,
	}
}

// Register binds a handler to a job type. Panics on invalid type or double
// registration; both are wiring bugs that must not survive startup.
func (d *Dispatcher) Register(jobType model.JobType, handler JobHandler) {
	if !jobType.Valid() {
		panic(fmt.Sprintf("dispatcher: unknown job type %q", jobType))
	}
	if _, exists := d.handlers[jobType]; exists {
		panic(fmt.Sprintf("dispatcher: handler for %q already registered", jobType))
	}
	d.handlers[jobType] = handler
}

// RunOnce reserves and executes at most one job. It returns false when no job
// was eligible.
func (d *Dispatcher) RunOnce(ctx context.Context) (bool, error) {
	job, err := d.jobRepo.ReserveNextJob(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	d.execute(ctx, job)
	return true, nil
}

// RunBatch drains up to limit eligible jobs and returns how many it executed.
// It stops early when the queue is empty or the context is done.
func (d *Dispatcher) RunBatch(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 1
	}
	processed := 0
	for processed < limit {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		ran, err := d.RunOnce(ctx)
		if err != nil {
			return processed, err
		}
		if !ran {
			break
		}
		processed++
	}
	return processed, nil
}

func (d *Dispatcher) execute(ctx context.Context, job *model.Job) {
	lg := logger.GetLogger().WithField("job_id", job.ID).WithField("job_type", string(job.Type))

	handler, ok := d.handlers[job.Type]
	if !ok {
		lg.Error("no handler registered for job type")
		d.fail(ctx, job, fmt.Sprintf("no handler registered for job type %s", job.Type))
		return
	}

	result, err := handler.Handle(ctx, job)
	if err == nil {
		if updErr := d.jobRepo.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, result, nil); updErr != nil {
			lg.Errorf("failed to mark job completed: %v", updErr)
		}
		lg.Info("job completed")
		return
	}

	perr := model.ClassifyError(err)
	lg = lg.WithField("error_code", string(perr.Code))
	if perr.Retryable() && job.Attempts+1 < job.MaxAttempts {
		if incErr := d.jobRepo.IncrementJobAttempts(ctx, job.ID); incErr != nil {
			lg.Errorf("failed to increment attempts: %v", incErr)
		}
		delay := RetryDelay(job.Attempts+1, d.baseDelay)
		notBefore := d.now().Add(delay)
		if rsErr := d.jobRepo.RescheduleJob(ctx, job.ID, &notBefore); rsErr != nil {
			lg.Errorf("failed to reschedule job: %v", rsErr)
			d.fail(ctx, job, perr.Error())
			return
		}
		lg.WithField("retry_in", delay.String()).Warnf("job failed, retry scheduled: %v", err)
		return
	}

	lg.Warnf("job failed permanently: %v", err)
	d.fail(ctx, job, perr.Error())
}

func (d *Dispatcher) fail(ctx context.Context, job *model.Job, reason string) {
	// Attempts are bumped on every failure, terminal ones included, so the
	// column reads as "times this job ran".
	if incErr := d.jobRepo.IncrementJobAttempts(ctx, job.ID); incErr != nil {
		logger.GetLogger().WithField("job_id", job.ID).
			Errorf("failed to increment attempts: %v", incErr)
	}
	if updErr := d.jobRepo.UpdateJobStatus(ctx, job.ID, model.JobStatusFailed, nil, &reason); updErr != nil {
		logger.GetLogger().WithField("job_id", job.ID).
			Errorf("failed to mark job failed: %v", updErr)
	}
}
