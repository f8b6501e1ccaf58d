package repository

import (
	"context"

	"contentpilot/domain/model"
)

// ISchedule stores external scheduler registrations keyed by logical name.
type ISchedule interface {
	UpsertRegistration(ctx context.Context, reg *model.ScheduleRegistration) error
	GetRegistration(ctx context.Context, name string) (*model.ScheduleRegistration, error)
	DeleteRegistration(ctx context.Context, name string) error
}
