package model

import "time"

// ScheduleRegistration records an external scheduler registration keyed by
// logical job name. Durable replacement for the old in-process schedule-id
// cache, which did not survive restarts or horizontal scaling.
type ScheduleRegistration struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id"`
	CronExpr   string    `json:"cron_expr"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
