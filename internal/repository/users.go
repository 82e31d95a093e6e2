package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/romanzh1/vocab-srs/internal/models"
)

func (r *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	query := r.psql.Insert("users").
		Columns("email", "streak").
		Values(user.Email, user.Streak).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (email: %s): %w", user.Email, err)
	}

	if err := r.QueryRowxContext(ctx, sqlStr, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("create user (email: %s): %w", user.Email, err)
	}
	return nil
}

func (r *Postgres) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT id, email, has_overdue_cards, last_overdue_check, streak, last_studied_at, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	if err := r.GetContext(ctx, &user, query, userID); err != nil {
		return nil, fmt.Errorf("get user (user_id: %d): %w", userID, err)
	}

	return &user, nil
}

func (r *Postgres) UpdateUserStreak(ctx context.Context, userID int64, streak int, studiedAt time.Time) error {
	query := r.psql.Update("users").
		Set("streak", streak).
		Set("last_studied_at", studiedAt).
		Where("id = ?", userID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("update user streak (user_id: %d, streak: %d): %w", userID, streak, err)
	}
	return nil
}

func (r *Postgres) UpdateUserOverdueFlag(ctx context.Context, userID int64, hasOverdue bool, checkedAt time.Time) error {
	query := r.psql.Update("users").
		Set("has_overdue_cards", hasOverdue).
		Set("last_overdue_check", checkedAt).
		Where("id = ?", userID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("update user overdue flag (user_id: %d): %w", userID, err)
	}
	return nil
}

func (r *Postgres) UserHasOverdueCards(ctx context.Context, userID int64, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM srs_cards
			WHERE user_id = $1
			  AND is_overdue = TRUE
			  AND (overdue_deadline IS NULL OR overdue_deadline > $2)
			  AND (frozen_until IS NULL OR frozen_until <= $2)
		)
	`

	var exists bool
	if err := r.QueryRowxContext(ctx, query, userID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user overdue cards (user_id: %d): %w", userID, err)
	}

	return exists, nil
}
