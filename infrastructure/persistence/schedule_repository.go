package persistence

import (
	"context"
	"database/sql"
	"time"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"
)

// ScheduleRepository records external scheduler registrations. The durable
// table replaces an in-memory schedule-id cache that broke under horizontal
// scaling and restarts.
type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) UpsertRegistration(ctx context.Context, reg *model.ScheduleRegistration) error {
	now := time.Now().UTC()
	q := `INSERT INTO schedule_registrations (name, external_id, cron_expr, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$4)
		  ON CONFLICT (name) DO UPDATE SET
			external_id=EXCLUDED.external_id,
			cron_expr=EXCLUDED.cron_expr,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, reg.Name, reg.ExternalID, reg.CronExpr, now)
	return err
}

func (r *ScheduleRepository) GetRegistration(ctx context.Context, name string) (*model.ScheduleRegistration, error) {
	q := `SELECT id, name, external_id, cron_expr, created_at, updated_at FROM schedule_registrations WHERE name=$1`
	row := r.db.QueryRowContext(ctx, q, name)
	reg := &model.ScheduleRegistration{}
	if err := row.Scan(&reg.ID, &reg.Name, &reg.ExternalID, &reg.CronExpr, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

func (r *ScheduleRepository) DeleteRegistration(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedule_registrations WHERE name=$1`, name)
	return err
}

var _ repository.ISchedule = (*ScheduleRepository)(nil)
