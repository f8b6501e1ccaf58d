package model

import (
	"encoding/json"
	"time"
)

// JobType is a closed enum; every value maps to exactly one registered handler.
type JobType string

const (
	JobTypePublishInstagram JobType = "publish_instagram"
	JobTypePublishFacebook  JobType = "publish_facebook"
	JobTypeRefreshMetrics   JobType = "refresh_metrics"
	// Content pipeline stages are produced elsewhere; the types exist so the
	// dispatcher can fail loudly when their handlers are not registered here.
	JobTypeGenerateCaption JobType = "generate_caption"
	JobTypeGenerateMedia   JobType = "generate_media"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypePublishInstagram, JobTypePublishFacebook, JobTypeRefreshMetrics,
		JobTypeGenerateCaption, JobTypeGenerateMedia:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is a unit of deferred, typed work with a payload, priority and retry budget.
type Job struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         JobType         `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       JobStatus       `json:"status"`
	Priority     int             `json:"priority"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        *string         `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Terminal reports whether the job can never run again.
func (j *Job) Terminal() bool {
	if j.Status == JobStatusCompleted {
		return true
	}
	return j.Status == JobStatusFailed && j.Attempts >= j.MaxAttempts
}
