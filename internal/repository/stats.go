package repository

import (
	"context"
	"fmt"
	"time"
)

// BumpDailyStat upserts the per-day solved counter keyed by user and date.
func (r *Postgres) BumpDailyStat(ctx context.Context, userID int64, day time.Time, solvedInc int) error {
	query := `
		INSERT INTO daily_study_stats (user_id, stat_date, srs_solved)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, stat_date)
		DO UPDATE SET srs_solved = daily_study_stats.srs_solved + EXCLUDED.srs_solved
	`

	if _, err := r.ExecContext(ctx, query, userID, day, solvedInc); err != nil {
		return fmt.Errorf("bump daily stat (user_id: %d, date: %s): %w", userID, day.Format("2006-01-02"), err)
	}
	return nil
}
