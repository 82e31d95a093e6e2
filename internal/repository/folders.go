package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/romanzh1/vocab-srs/internal/models"
)

const folderColumns = `
	id, user_id, parent_id, name, learning_curve_type, stage, cycle_anchor_at,
	next_review_date, created_date, kind, auto_created, alarm_active,
	is_completed, completed_at, completed_words_count, completion_count,
	is_mastered, is_folder_mastered, folder_mastered_at`

func (r *Postgres) CreateFolder(ctx context.Context, folder *models.Folder) error {
	query := r.psql.Insert("srs_folders").
		Columns("user_id", "parent_id", "name", "learning_curve_type", "stage",
			"cycle_anchor_at", "next_review_date", "kind", "auto_created", "alarm_active").
		Values(folder.UserID, folder.ParentID, folder.Name, folder.LearningCurveType, folder.Stage,
			folder.CycleAnchorAt, folder.NextReviewDate, folder.Kind, folder.AutoCreated, folder.AlarmActive).
		Suffix("RETURNING id, created_date")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (name: %s): %w", folder.Name, err)
	}

	if err := r.QueryRowxContext(ctx, sqlStr, args...).Scan(&folder.ID, &folder.CreatedDate); err != nil {
		return fmt.Errorf("create folder (user_id: %d, name: %s): %w", folder.UserID, folder.Name, err)
	}
	return nil
}

func (r *Postgres) GetFolder(ctx context.Context, userID, folderID int64) (*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM srs_folders
		WHERE id = $1 AND user_id = $2
	`

	var folder models.Folder
	if err := r.GetContext(ctx, &folder, query, folderID, userID); err != nil {
		return nil, fmt.Errorf("get folder (user_id: %d, folder_id: %d): %w", userID, folderID, err)
	}

	return &folder, nil
}

func (r *Postgres) GetFolderCurveType(ctx context.Context, folderID int64) (string, error) {
	var curveType string
	err := r.QueryRowxContext(ctx, `SELECT learning_curve_type FROM srs_folders WHERE id = $1`, folderID).Scan(&curveType)
	if err != nil {
		return "", fmt.Errorf("get folder curve type (folder_id: %d): %w", folderID, err)
	}

	return curveType, nil
}

func (r *Postgres) CompleteFolder(ctx context.Context, folderID int64, at time.Time, learnedCount int) error {
	query := r.psql.Update("srs_folders").
		Set("is_completed", true).
		Set("completed_at", at).
		Set("completed_words_count", learnedCount).
		Where("id = ?", folderID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (folder_id: %d): %w", folderID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("complete folder (folder_id: %d): %w", folderID, err)
	}
	return nil
}

// FinishFolderCycle stamps a finished review cycle: bumps the completion
// counter, renames the folder to reflect the cycle, and schedules the next
// cycle anchor.
func (r *Postgres) FinishFolderCycle(ctx context.Context, folderID int64, completionCount int, name string, anchor, nextReview time.Time) error {
	query := r.psql.Update("srs_folders").
		Set("completion_count", completionCount).
		Set("name", name).
		Set("cycle_anchor_at", anchor).
		Set("next_review_date", nextReview).
		Set("is_completed", false).
		Set("completed_at", nil).
		Where("id = ?", folderID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (folder_id: %d): %w", folderID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("finish folder cycle (folder_id: %d, completion_count: %d): %w", folderID, completionCount, err)
	}
	return nil
}

func (r *Postgres) SetFolderMastered(ctx context.Context, folderID int64, name string, at time.Time) error {
	query := r.psql.Update("srs_folders").
		Set("is_folder_mastered", true).
		Set("folder_mastered_at", at).
		Set("name", name).
		Set("alarm_active", false).
		Where("id = ?", folderID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (folder_id: %d): %w", folderID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("set folder mastered (folder_id: %d): %w", folderID, err)
	}
	return nil
}

// ReactivateFolder puts a mastered folder back into rotation for another
// learning cycle.
func (r *Postgres) ReactivateFolder(ctx context.Context, folderID int64, name string, anchor, nextReview time.Time) error {
	query := r.psql.Update("srs_folders").
		Set("is_folder_mastered", false).
		Set("folder_mastered_at", nil).
		Set("name", name).
		Set("cycle_anchor_at", anchor).
		Set("next_review_date", nextReview).
		Set("alarm_active", true).
		Set("is_completed", false).
		Set("completed_at", nil).
		Where("id = ?", folderID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (folder_id: %d): %w", folderID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("reactivate folder (folder_id: %d): %w", folderID, err)
	}
	return nil
}

func (r *Postgres) ListChildFolders(ctx context.Context, userID, parentID int64) ([]*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM srs_folders
		WHERE user_id = $1 AND parent_id = $2
		ORDER BY created_date
	`

	var folders []*models.Folder
	if err := r.SelectContext(ctx, &folders, query, userID, parentID); err != nil {
		return nil, fmt.Errorf("list child folders (user_id: %d, parent_id: %d): %w", userID, parentID, err)
	}

	return folders, nil
}

func (r *Postgres) CreateFolderItems(ctx context.Context, items []*models.FolderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := r.psql.Insert("srs_folder_items").
		Columns("folder_id", "card_id", "vocab_id")
	for _, it := range items {
		query = query.Values(it.FolderID, it.CardID, it.VocabID)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (items: %d): %w", len(items), err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("create folder items (folder_id: %d, count: %d): %w", items[0].FolderID, len(items), err)
	}
	return nil
}

func (r *Postgres) GetFolderItem(ctx context.Context, folderID, cardID int64) (*models.FolderItem, error) {
	query := `
		SELECT folder_id, card_id, vocab_id, learned, wrong_count, last_reviewed_at, last_wrong_at
		FROM srs_folder_items
		WHERE folder_id = $1 AND card_id = $2
	`

	var item models.FolderItem
	if err := r.GetContext(ctx, &item, query, folderID, cardID); err != nil {
		return nil, fmt.Errorf("get folder item (folder_id: %d, card_id: %d): %w", folderID, cardID, err)
	}

	return &item, nil
}

func (r *Postgres) UpdateFolderItemProgress(ctx context.Context, folderID, cardID int64, learned bool, wrongInc int, reviewedAt time.Time) error {
	query := `
		UPDATE srs_folder_items
		SET learned = learned OR $3,
		    wrong_count = wrong_count + $4,
		    last_reviewed_at = $5
		WHERE folder_id = $1 AND card_id = $2
	`

	if _, err := r.ExecContext(ctx, query, folderID, cardID, learned, wrongInc, reviewedAt); err != nil {
		return fmt.Errorf("update folder item progress (folder_id: %d, card_id: %d): %w", folderID, cardID, err)
	}
	return nil
}

func (r *Postgres) StampFolderItemWrong(ctx context.Context, folderID, cardID int64, at time.Time) error {
	query := r.psql.Update("srs_folder_items").
		Set("last_wrong_at", at).
		Where("folder_id = ? AND card_id = ?", folderID, cardID)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (folder_id: %d): %w", folderID, err)
	}

	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("stamp folder item wrong (folder_id: %d, card_id: %d): %w", folderID, cardID, err)
	}
	return nil
}

// ResetFolderItems clears per-cycle progress so the folder can be studied
// again from scratch.
func (r *Postgres) ResetFolderItems(ctx context.Context, folderID int64) error {
	query := `
		UPDATE srs_folder_items
		SET learned = FALSE,
		    last_reviewed_at = NULL
		WHERE folder_id = $1
	`

	if _, err := r.ExecContext(ctx, query, folderID); err != nil {
		return fmt.Errorf("reset folder items (folder_id: %d): %w", folderID, err)
	}
	return nil
}

func (r *Postgres) CountFolderItems(ctx context.Context, folderID int64) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE learned)
		FROM srs_folder_items
		WHERE folder_id = $1
	`

	var total, learned int
	if err := r.QueryRowxContext(ctx, query, folderID).Scan(&total, &learned); err != nil {
		return 0, 0, fmt.Errorf("count folder items (folder_id: %d): %w", folderID, err)
	}

	return total, learned, nil
}
