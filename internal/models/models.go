package models

import (
	"time"

	"github.com/romanzh1/vocab-srs/internal/service/srs"
)

type User struct {
	ID               int64      `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	HasOverdueCards  bool       `db:"has_overdue_cards" json:"has_overdue_cards"`
	LastOverdueCheck *time.Time `db:"last_overdue_check" json:"last_overdue_check,omitempty"`
	Streak           int        `db:"streak" json:"streak"`
	LastStudiedAt    *time.Time `db:"last_studied_at" json:"last_studied_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// Card is one reviewable unit: user x learning item x folder. Its phase
// (waiting / overdue / frozen) is always derived from the timestamps below,
// never cached.
type Card struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	ItemType          string     `db:"item_type" json:"item_type"`
	ItemID            int64      `db:"item_id" json:"item_id"`
	FolderID          *int64     `db:"folder_id" json:"folder_id,omitempty"`
	Stage             int        `db:"stage" json:"stage"`
	NextReviewAt      *time.Time `db:"next_review_at" json:"next_review_at,omitempty"`
	WaitingUntil      *time.Time `db:"waiting_until" json:"waiting_until,omitempty"`
	IsOverdue         bool       `db:"is_overdue" json:"is_overdue"`
	OverdueDeadline   *time.Time `db:"overdue_deadline" json:"overdue_deadline,omitempty"`
	OverdueStartAt    *time.Time `db:"overdue_start_at" json:"overdue_start_at,omitempty"`
	FrozenUntil       *time.Time `db:"frozen_until" json:"frozen_until,omitempty"`
	IsFromWrongAnswer bool       `db:"is_from_wrong_answer" json:"is_from_wrong_answer"`
	WrongStreakCount  int        `db:"wrong_streak_count" json:"wrong_streak_count"`
	CorrectTotal      int        `db:"correct_total" json:"correct_total"`
	WrongTotal        int        `db:"wrong_total" json:"wrong_total"`
	IsMastered        bool       `db:"is_mastered" json:"is_mastered"`
	MasteredAt        *time.Time `db:"mastered_at" json:"mastered_at,omitempty"`
	MasterCycles      int        `db:"master_cycles" json:"master_cycles"`
	IsTodayStudy      bool       `db:"is_today_study" json:"is_today_study"`
	TodayFirstResult  *bool      `db:"today_first_result" json:"today_first_result,omitempty"`
	TodayStudyDate    *time.Time `db:"today_study_date" json:"today_study_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// Snapshot projects the fields phase classification needs.
func (c *Card) Snapshot() srs.Snapshot {
	return srs.Snapshot{
		Stage:             c.Stage,
		NextReviewAt:      c.NextReviewAt,
		WaitingUntil:      c.WaitingUntil,
		OverdueDeadline:   c.OverdueDeadline,
		FrozenUntil:       c.FrozenUntil,
		IsOverdue:         c.IsOverdue,
		IsFromWrongAnswer: c.IsFromWrongAnswer,
	}
}

type Folder struct {
	ID                  int64      `db:"id" json:"id"`
	UserID              int64      `db:"user_id" json:"user_id"`
	ParentID            *int64     `db:"parent_id" json:"parent_id,omitempty"`
	Name                string     `db:"name" json:"name"`
	LearningCurveType   string     `db:"learning_curve_type" json:"learning_curve_type"`
	Stage               int        `db:"stage" json:"stage"`
	CycleAnchorAt       *time.Time `db:"cycle_anchor_at" json:"cycle_anchor_at,omitempty"`
	NextReviewDate      *time.Time `db:"next_review_date" json:"next_review_date,omitempty"`
	CreatedDate         time.Time  `db:"created_date" json:"created_date"`
	Kind                string     `db:"kind" json:"kind"`
	AutoCreated         bool       `db:"auto_created" json:"auto_created"`
	AlarmActive         bool       `db:"alarm_active" json:"alarm_active"`
	IsCompleted         bool       `db:"is_completed" json:"is_completed"`
	CompletedAt         *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedWordsCount int        `db:"completed_words_count" json:"completed_words_count"`
	CompletionCount     int        `db:"completion_count" json:"completion_count"`
	IsMastered          bool       `db:"is_mastered" json:"is_mastered"`
	IsFolderMastered    bool       `db:"is_folder_mastered" json:"is_folder_mastered"`
	FolderMasteredAt    *time.Time `db:"folder_mastered_at" json:"folder_mastered_at,omitempty"`
}

// CurveType returns the folder's scheduling policy, defaulting to long.
func (f *Folder) CurveType() srs.CurveType {
	return srs.ParseCurveType(f.LearningCurveType)
}

type FolderItem struct {
	FolderID       int64      `db:"folder_id"`
	CardID         int64      `db:"card_id"`
	VocabID        *int64     `db:"vocab_id"`
	Learned        bool       `db:"learned"`
	WrongCount     int        `db:"wrong_count"`
	LastReviewedAt *time.Time `db:"last_reviewed_at"`
	LastWrongAt    *time.Time `db:"last_wrong_at"`
}

// WrongAnswer is a ledger entry for a counted miss, independent of the card's
// stage machine, with a 24-hour re-review window.
type WrongAnswer struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	VocabID           int64      `db:"vocab_id" json:"vocab_id"`
	FolderID          *int64     `db:"folder_id" json:"folder_id,omitempty"`
	Attempts          int        `db:"attempts" json:"attempts"`
	WrongAt           time.Time  `db:"wrong_at" json:"wrong_at"`
	ReviewWindowStart time.Time  `db:"review_window_start" json:"review_window_start"`
	ReviewWindowEnd   time.Time  `db:"review_window_end" json:"review_window_end"`
	IsCompleted       bool       `db:"is_completed" json:"is_completed"`
	ReviewedAt        *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// Reviewable reports whether the entry is inside its open review window.
func (w *WrongAnswer) Reviewable(now time.Time) bool {
	return !w.IsCompleted && !now.Before(w.ReviewWindowStart) && !now.After(w.ReviewWindowEnd)
}

type DailyStudyStat struct {
	UserID    int64     `db:"user_id"`
	StatDate  time.Time `db:"stat_date"`
	SrsSolved int       `db:"srs_solved"`
}

// SrsStatus is the per-user dashboard rollup.
type SrsStatus struct {
	OverdueCount  int     `json:"overdue_count"`
	WaitingCount  int     `json:"waiting_count"`
	FrozenCount   int     `json:"frozen_count"`
	TotalCards    int     `json:"total_cards"`
	MasteredCount int     `json:"mastered_count"`
	MasteryRate   float64 `json:"mastery_rate"`
}
