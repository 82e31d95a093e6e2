package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/romanzh1/vocab-srs/internal/models"
	"github.com/romanzh1/vocab-srs/internal/service/srs"
)

const cardColumns = `
	id, user_id, item_type, item_id, folder_id, stage, next_review_at,
	waiting_until, is_overdue, overdue_deadline, overdue_start_at, frozen_until,
	is_from_wrong_answer, wrong_streak_count, correct_total, wrong_total,
	is_mastered, mastered_at, master_cycles, is_today_study, today_first_result,
	today_study_date, created_at`

func (r *Postgres) CreateCards(ctx context.Context, cards []*models.Card) error {
	if len(cards) == 0 {
		return nil
	}

	query := r.psql.Insert("srs_cards").
		Columns("user_id", "item_type", "item_id", "folder_id", "stage")
	for _, c := range cards {
		query = query.Values(c.UserID, c.ItemType, c.ItemID, c.FolderID, c.Stage)
	}

	sqlStr, args, err := query.Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (cards: %d): %w", len(cards), err)
	}

	rows, err := r.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("create cards (user_id: %d, count: %d): %w", cards[0].UserID, len(cards), err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&cards[i].ID); err != nil {
			return fmt.Errorf("scan created card id: %w", err)
		}
	}
	return rows.Err()
}

// GetCardForUpdate loads the card with a row lock so concurrent answers for
// the same card serialize on the eligibility check.
func (r *Postgres) GetCardForUpdate(ctx context.Context, userID, cardID int64, folderID *int64) (*models.Card, error) {
	query := r.psql.Select(cardColumns).
		From("srs_cards").
		Where("id = ? AND user_id = ?", cardID, userID)
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}
	query = query.Suffix("FOR UPDATE")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (card_id: %d): %w", cardID, err)
	}

	var card models.Card
	if err := r.GetContext(ctx, &card, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("get card for update (user_id: %d, card_id: %d): %w", userID, cardID, err)
	}

	return &card, nil
}

// SaveCardState persists every mutable scheduling field of the card. Callers
// hold the row lock from GetCardForUpdate.
func (r *Postgres) SaveCardState(ctx context.Context, card *models.Card) error {
	query := r.psql.Update("srs_cards").
		Set("stage", card.Stage).
		Set("next_review_at", card.NextReviewAt).
		Set("waiting_until", card.WaitingUntil).
		Set("is_overdue", card.IsOverdue).
		Set("overdue_deadline", card.OverdueDeadline).
		Set("overdue_start_at", card.OverdueStartAt).
		Set("frozen_until", card.FrozenUntil).
		Set("is_from_wrong_answer", card.IsFromWrongAnswer).
		Set("wrong_streak_count", card.WrongStreakCount).
		Set("correct_total", card.CorrectTotal).
		Set("wrong_total", card.WrongTotal).
		Set("is_mastered", card.IsMastered).
		Set("mastered_at", card.MasteredAt).
		Set("master_cycles", card.MasterCycles).
		Set("is_today_study", card.IsTodayStudy).
		Set("today_first_result", card.TodayFirstResult).
		Set("today_study_date", card.TodayStudyDate).
		Where("id = ?", card.ID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (card_id: %d): %w", card.ID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("save card state (card_id: %d, stage: %d): %w", card.ID, card.Stage, err)
	}
	return nil
}

func (r *Postgres) CountFolderCardMastery(ctx context.Context, folderID, userID int64) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE c.is_mastered)
		FROM srs_folder_items fi
		JOIN srs_cards c ON c.id = fi.card_id
		WHERE fi.folder_id = $1 AND c.user_id = $2
	`

	var total, mastered int
	if err := r.QueryRowxContext(ctx, query, folderID, userID).Scan(&total, &mastered); err != nil {
		return 0, 0, fmt.Errorf("count folder card mastery (folder_id: %d, user_id: %d): %w", folderID, userID, err)
	}

	return total, mastered, nil
}

func (r *Postgres) ListAvailableCards(ctx context.Context, userID int64, now time.Time) ([]*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM srs_cards
		WHERE user_id = $1
		  AND is_overdue = TRUE
		  AND (overdue_deadline IS NULL OR overdue_deadline > $2)
		  AND (frozen_until IS NULL OR frozen_until <= $2)
		ORDER BY is_from_wrong_answer DESC, overdue_start_at ASC
	`

	var cards []*models.Card
	if err := r.SelectContext(ctx, &cards, query, userID, now); err != nil {
		return nil, fmt.Errorf("list available cards (user_id: %d): %w", userID, err)
	}

	return cards, nil
}

func (r *Postgres) CountWaitingCards(ctx context.Context, userID int64, now time.Time) (int, error) {
	query := r.psql.Select("COUNT(*)").
		From("srs_cards").
		Where("user_id = ?", userID).
		Where("waiting_until > ?", now).
		Where("is_overdue = FALSE")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	var count int
	if err := r.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count waiting cards (user_id: %d): %w", userID, err)
	}
	return count, nil
}

func (r *Postgres) GetSrsStatus(ctx context.Context, userID int64, now time.Time) (*models.SrsStatus, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_overdue AND (overdue_deadline IS NULL OR overdue_deadline > $2)),
			COUNT(*) FILTER (WHERE waiting_until > $2 AND NOT is_overdue AND (frozen_until IS NULL OR frozen_until <= $2)),
			COUNT(*) FILTER (WHERE frozen_until > $2),
			COUNT(*),
			COUNT(*) FILTER (WHERE is_mastered)
		FROM srs_cards
		WHERE user_id = $1
	`

	var st models.SrsStatus
	err := r.QueryRowxContext(ctx, query, userID, now).Scan(
		&st.OverdueCount, &st.WaitingCount, &st.FrozenCount, &st.TotalCards, &st.MasteredCount)
	if err != nil {
		return nil, fmt.Errorf("get srs status (user_id: %d): %w", userID, err)
	}

	if st.TotalCards > 0 {
		st.MasteryRate = float64(st.MasteredCount) / float64(st.TotalCards) * 100
	}
	return &st, nil
}

// MarkWaitingCardsOverdue opens the overdue window for every card whose
// waiting period elapsed. The deadline is derived from waiting_until, not
// from the sweep time, so a late sweep does not extend the window. The SET
// expressions all read the pre-update row, so the deadline is computed
// before waiting_until is cleared.
func (r *Postgres) MarkWaitingCardsOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		UPDATE srs_cards
		SET is_overdue = TRUE,
		    overdue_start_at = $1,
		    overdue_deadline = waiting_until + make_interval(hours => $2),
		    waiting_until = NULL
		WHERE waiting_until IS NOT NULL
		  AND waiting_until <= $1
		  AND is_overdue = FALSE
		  AND (frozen_until IS NULL OR frozen_until <= $1)
		RETURNING user_id
	`

	userIDs, err := r.updateReturningUsers(ctx, query, now, int(srs.OverdueWindow.Hours()))
	if err != nil {
		return nil, fmt.Errorf("mark waiting cards overdue: %w", err)
	}
	return userIDs, nil
}

// FreezeExpiredOverdueCards applies the missed-deadline penalty. Missing the
// window marks the wrong-answer lineage, like an actual miss would.
func (r *Postgres) FreezeExpiredOverdueCards(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		UPDATE srs_cards
		SET frozen_until = $1::timestamptz + make_interval(hours => $2),
		    is_overdue = FALSE,
		    overdue_deadline = NULL,
		    overdue_start_at = NULL,
		    waiting_until = NULL,
		    next_review_at = NULL,
		    is_from_wrong_answer = TRUE
		WHERE is_overdue = TRUE
		  AND overdue_deadline IS NOT NULL
		  AND overdue_deadline <= $1
		RETURNING user_id
	`

	userIDs, err := r.updateReturningUsers(ctx, query, now, int(srs.FrozenPenalty.Hours()))
	if err != nil {
		return nil, fmt.Errorf("freeze expired overdue cards: %w", err)
	}
	return userIDs, nil
}

// ReleaseExpiredFrozenCards puts thawed cards back into a fresh overdue
// window so they become reviewable again.
func (r *Postgres) ReleaseExpiredFrozenCards(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		UPDATE srs_cards
		SET frozen_until = NULL,
		    is_overdue = TRUE,
		    overdue_start_at = $1,
		    overdue_deadline = $1::timestamptz + make_interval(hours => $2)
		WHERE frozen_until IS NOT NULL
		  AND frozen_until <= $1
		RETURNING user_id
	`

	userIDs, err := r.updateReturningUsers(ctx, query, now, int(srs.OverdueWindow.Hours()))
	if err != nil {
		return nil, fmt.Errorf("release expired frozen cards: %w", err)
	}
	return userIDs, nil
}

func (r *Postgres) updateReturningUsers(ctx context.Context, query string, now time.Time, hours int) ([]int64, error) {
	rows, err := r.QueryContext(ctx, query, now, hours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
