package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
)

// ScheduleRepository is read-only; schedules are owned by the approval workflow.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListActive returns approved schedules whose effective date range covers day.
func (r *ScheduleRepository) ListActive(ctx context.Context, day time.Time) ([]domain.Schedule, error) {
	query := `
		SELECT id, campaign_id, tenant_id, weekdays, start_time, end_time, daily_quota,
		       approval_state, effective_start, effective_end
		FROM schedules
		WHERE approval_state = 'approved'
		  AND effective_start <= ?
		  AND (effective_end IS NULL OR effective_end >= ?)
		ORDER BY id ASC
	`

	date := day.Format(time.DateOnly)

	var schedules []domain.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, date, date); err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}

	return schedules, nil
}
