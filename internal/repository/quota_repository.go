package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// QuotaRepository stores per schedule, per day send counters. Days are
// calendar dates in the scheduler timezone.
type QuotaRepository struct {
	db *sqlx.DB
}

func NewQuotaRepository(db *sqlx.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

func (r *QuotaRepository) Read(ctx context.Context, scheduleID int64, day time.Time) (int, error) {
	query := `SELECT sent_count FROM schedule_quota_counters WHERE schedule_id = ? AND day = ?`

	var count int
	if err := r.db.GetContext(ctx, &count, query, scheduleID, day.Format(time.DateOnly)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read quota counter: %w", err)
	}

	return count, nil
}

// Increment adds amount to the day's counter, creating it on first use.
func (r *QuotaRepository) Increment(ctx context.Context, scheduleID int64, day time.Time, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("quota increment must be positive, got %d", amount)
	}

	query := `
		INSERT INTO schedule_quota_counters (schedule_id, day, sent_count, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE sent_count = sent_count + VALUES(sent_count), updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, scheduleID, day.Format(time.DateOnly), amount); err != nil {
		return fmt.Errorf("failed to increment quota counter: %w", err)
	}

	return nil
}
