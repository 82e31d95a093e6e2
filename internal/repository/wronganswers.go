package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/romanzh1/vocab-srs/internal/models"
)

const wrongAnswerColumns = `
	id, user_id, vocab_id, folder_id, attempts, wrong_at,
	review_window_start, review_window_end, is_completed, reviewed_at`

// GetActiveWrongAnswer finds the open ledger entry for a vocab whose review
// window has not ended yet. Returns (nil, nil) when there is none.
func (r *Postgres) GetActiveWrongAnswer(ctx context.Context, userID, vocabID int64, folderID *int64, now time.Time) (*models.WrongAnswer, error) {
	query := r.psql.Select(wrongAnswerColumns).
		From("wrong_answers").
		Where("user_id = ? AND vocab_id = ?", userID, vocabID).
		Where("is_completed = FALSE").
		Where("review_window_end > ?", now).
		OrderBy("wrong_at DESC").
		Limit(1)
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (vocab_id: %d): %w", vocabID, err)
	}

	var wa models.WrongAnswer
	if err := r.GetContext(ctx, &wa, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active wrong answer (user_id: %d, vocab_id: %d): %w", userID, vocabID, err)
	}

	return &wa, nil
}

func (r *Postgres) CreateWrongAnswer(ctx context.Context, wa *models.WrongAnswer) error {
	query := r.psql.Insert("wrong_answers").
		Columns("user_id", "vocab_id", "folder_id", "attempts", "wrong_at",
			"review_window_start", "review_window_end").
		Values(wa.UserID, wa.VocabID, wa.FolderID, wa.Attempts, wa.WrongAt,
			wa.ReviewWindowStart, wa.ReviewWindowEnd).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (vocab_id: %d): %w", wa.VocabID, err)
	}

	if err := r.QueryRowxContext(ctx, sqlStr, args...).Scan(&wa.ID); err != nil {
		return fmt.Errorf("create wrong answer (user_id: %d, vocab_id: %d): %w", wa.UserID, wa.VocabID, err)
	}
	return nil
}

// TouchWrongAnswer records a repeated miss on an existing entry: bumps the
// attempt counter and slides the review window.
func (r *Postgres) TouchWrongAnswer(ctx context.Context, id int64, wrongAt, windowEnd time.Time) error {
	query := `
		UPDATE wrong_answers
		SET attempts = attempts + 1,
		    wrong_at = $2,
		    review_window_end = $3
		WHERE id = $1
	`

	if _, err := r.ExecContext(ctx, query, id, wrongAt, windowEnd); err != nil {
		return fmt.Errorf("touch wrong answer (id: %d): %w", id, err)
	}
	return nil
}

func (r *Postgres) CompleteWrongAnswerRecord(ctx context.Context, id int64, at time.Time) error {
	query := r.psql.Update("wrong_answers").
		Set("is_completed", true).
		Set("reviewed_at", at).
		Where("id = ?", id)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (id: %d): %w", id, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("complete wrong answer record (id: %d): %w", id, err)
	}
	return nil
}

// FindReviewableWrongAnswer finds an open entry whose window has started and
// has not ended. Returns (nil, nil) when there is none.
func (r *Postgres) FindReviewableWrongAnswer(ctx context.Context, userID, vocabID int64, folderID *int64, now time.Time) (*models.WrongAnswer, error) {
	query := r.psql.Select(wrongAnswerColumns).
		From("wrong_answers").
		Where("user_id = ? AND vocab_id = ?", userID, vocabID).
		Where("is_completed = FALSE").
		Where("review_window_start <= ?", now).
		Where("review_window_end >= ?", now).
		OrderBy("wrong_at DESC").
		Limit(1)
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (vocab_id: %d): %w", vocabID, err)
	}

	var wa models.WrongAnswer
	if err := r.GetContext(ctx, &wa, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reviewable wrong answer (user_id: %d, vocab_id: %d): %w", userID, vocabID, err)
	}

	return &wa, nil
}

func (r *Postgres) CountAvailableWrongAnswers(ctx context.Context, userID int64, folderID *int64, now time.Time) (int, error) {
	query := r.psql.Select("COUNT(*)").
		From("wrong_answers").
		Where("user_id = ?", userID).
		Where("is_completed = FALSE").
		Where("review_window_start <= ?", now).
		Where("review_window_end >= ?", now)
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	var count int
	if err := r.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count available wrong answers (user_id: %d): %w", userID, err)
	}
	return count, nil
}

func (r *Postgres) ListWrongAnswersForQuiz(ctx context.Context, userID int64, folderID *int64, limit int) ([]*models.WrongAnswer, error) {
	query := r.psql.Select(wrongAnswerColumns).
		From("wrong_answers").
		Where("user_id = ?", userID).
		Where("is_completed = FALSE").
		OrderBy("wrong_at ASC").
		Limit(uint64(limit))
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	var was []*models.WrongAnswer
	if err := r.SelectContext(ctx, &was, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list wrong answers for quiz (user_id: %d): %w", userID, err)
	}

	return was, nil
}

// AutoCompleteExpiredWrongAnswers closes entries whose review window ended
// before the cutoff and were never re-reviewed.
func (r *Postgres) AutoCompleteExpiredWrongAnswers(ctx context.Context, endedBefore, at time.Time) (int64, error) {
	query := `
		UPDATE wrong_answers
		SET is_completed = TRUE,
		    reviewed_at = $2
		WHERE is_completed = FALSE
		  AND review_window_end < $1
	`

	res, err := r.ExecContext(ctx, query, endedBefore, at)
	if err != nil {
		return 0, fmt.Errorf("auto complete expired wrong answers: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count auto completed wrong answers: %w", err)
	}
	return affected, nil
}
