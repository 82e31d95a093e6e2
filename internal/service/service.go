package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/romanzh1/vocab-srs/internal/models"
	"github.com/romanzh1/vocab-srs/internal/service/srs"
	"github.com/romanzh1/vocab-srs/pkg/clock"
	"github.com/romanzh1/vocab-srs/pkg/utils"
)

// Service runs the scheduling core. All time decisions go through the shared
// Clock so the answer processor and the sweep agree on card phases.
type Service struct {
	repo  models.Repository
	clock clock.Clock
}

func New(repo models.Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{repo: repo, clock: clk}
}

// AnswerStatus is the outcome reported to the caller for one answer.
type AnswerStatus string

const (
	StatusCorrect      AnswerStatus = "correct"
	StatusWrong        AnswerStatus = "wrong"
	StatusWaiting      AnswerStatus = "waiting"
	StatusFrozen       AnswerStatus = "frozen"
	StatusNotAvailable AnswerStatus = "not_available"
)

// Preview shows what an ineligible answer would have done to the card.
type Preview struct {
	Stage        int        `json:"stage"`
	WaitingUntil *time.Time `json:"waiting_until,omitempty"`
	Mastered     bool       `json:"mastered"`
}

// StreakInfo reports the user's streak after a counted attempt.
type StreakInfo struct {
	Current  int  `json:"current"`
	Extended bool `json:"extended"`
}

// AnswerResult is the full outcome of MarkAnswer.
type AnswerResult struct {
	Status        AnswerStatus `json:"status"`
	Counted       bool         `json:"counted"`
	Phase         string       `json:"phase"`
	PreviousStage int          `json:"previous_stage"`
	Stage         int          `json:"stage"`
	Mastered      bool         `json:"mastered"`
	WaitingUntil  *time.Time   `json:"waiting_until,omitempty"`
	NextReviewAt  *time.Time   `json:"next_review_at,omitempty"`
	Preview       *Preview     `json:"preview,omitempty"`
	Streak        *StreakInfo  `json:"streak,omitempty"`
}

// MarkAnswer processes one answer for a card. The whole decision runs in a
// single transaction holding a row lock on the card, so concurrent answers
// for the same card serialize on the eligibility check.
func (s *Service) MarkAnswer(ctx context.Context, userID, cardID int64, folderID *int64, correct bool) (*AnswerResult, error) {
	now := s.clock.Now()

	var result *AnswerResult
	var ownerFolderID *int64
	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		card, err := tx.GetCardForUpdate(ctx, userID, cardID, folderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCardNotFound
			}
			return err
		}
		ownerFolderID = card.FolderID

		curve := srs.CurveLong
		if card.FolderID != nil {
			ct, err := tx.GetFolderCurveType(ctx, *card.FolderID)
			if err != nil {
				return err
			}
			curve = srs.ParseCurveType(ct)
		}

		result, err = s.processAnswer(ctx, tx, card, curve, correct, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Mastery cascades run after the answer transaction commits; a failed
	// cascade must not roll back the answer itself. The cascade follows the
	// card's owning folder, which the caller is not required to pass.
	if result.Mastered && ownerFolderID != nil {
		if err := s.CheckAndUpdateFolderMasteryStatus(ctx, userID, *ownerFolderID); err != nil {
			zap.S().Errorw("folder mastery check failed after answer",
				"user_id", userID, "folder_id", *ownerFolderID, "error", err)
		}
	}

	return result, nil
}

func (s *Service) processAnswer(ctx context.Context, tx models.Repository, card *models.Card, curve srs.CurveType, correct bool, now time.Time) (*AnswerResult, error) {
	snap := card.Snapshot()
	phase := srs.ClassifyPhase(snap, now)

	result := &AnswerResult{
		Phase:         phase.String(),
		PreviousStage: card.Stage,
		Stage:         card.Stage,
	}

	if !srs.Eligible(phase, curve) {
		result.Status = ineligibleStatus(phase, snap, now)
		result.Preview = previewTransition(now, card.Stage, curve, correct)
		// The attempt still happened; stamp the folder item so review
		// history records it.
		if card.FolderID != nil {
			if err := tx.UpdateFolderItemProgress(ctx, *card.FolderID, card.ID, false, 0, now); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	firstToday := card.TodayStudyDate == nil || !utils.DatesEqual(*card.TodayStudyDate, now)
	counted := srs.CountsInStats(phase, curve, firstToday)
	result.Counted = counted

	overdue := phase == srs.PhaseOverdue

	var tr srs.Transition
	if correct {
		result.Status = StatusCorrect
		tr = srs.NextOnCorrect(now, card.Stage, curve)
	} else {
		result.Status = StatusWrong
		tr = srs.NextOnWrong(now, card.Stage, curve, overdue)
	}

	s.applyTransition(card, tr, correct, counted, now)

	if curve == srs.CurveFree && counted {
		day := utils.StartOfDay(now)
		card.TodayStudyDate = &day
		card.TodayFirstResult = &correct
	}

	if err := tx.SaveCardState(ctx, card); err != nil {
		return nil, err
	}

	if counted {
		if err := s.recordCountedAttempt(ctx, tx, card, correct, now); err != nil {
			return nil, err
		}
		streak, err := s.bumpStreak(ctx, tx, card.UserID, now)
		if err != nil {
			return nil, err
		}
		result.Streak = streak
	}

	if card.FolderID != nil {
		if err := s.updateFolderItem(ctx, tx, card, correct, counted, now); err != nil {
			return nil, err
		}
	}

	// Answering an overdue card may have cleared the user's last reviewable
	// card; keep the aggregate flag in step.
	hasOverdue, err := tx.UserHasOverdueCards(ctx, card.UserID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateUserOverdueFlag(ctx, card.UserID, hasOverdue, now); err != nil {
		return nil, err
	}

	result.Stage = card.Stage
	result.Mastered = correct && tr.Mastered
	result.WaitingUntil = card.WaitingUntil
	result.NextReviewAt = card.NextReviewAt
	return result, nil
}

// applyTransition writes the transition into the card, together with the
// counter and lineage bookkeeping that goes with each answer.
func (s *Service) applyTransition(card *models.Card, tr srs.Transition, correct, counted bool, now time.Time) {
	card.Stage = tr.Stage
	card.WaitingUntil = tr.WaitingUntil
	card.NextReviewAt = tr.NextReviewAt
	card.IsOverdue = false
	card.OverdueStartAt = nil
	card.FrozenUntil = nil
	card.IsTodayStudy = !counted

	// The next overdue deadline is derivable the moment the cooldown is
	// known; keeping it on the row lets the wrong-answer gap phase be
	// classified before the sweep runs.
	if tr.WaitingUntil != nil {
		d := srs.OverdueDeadline(*tr.WaitingUntil)
		card.OverdueDeadline = &d
	} else {
		card.OverdueDeadline = nil
	}

	// Lifetime totals move only on counted attempts; the wrong lineage
	// follows every state change, so an uncounted free-curve repeat still
	// marks or graduates the card.
	if correct {
		if counted {
			card.CorrectTotal++
		}
		card.WrongStreakCount = 0
		card.IsFromWrongAnswer = false
		// Mastery is lifetime history: the flag never comes back off,
		// repeat masterings bump the cycle counter.
		if tr.Mastered {
			card.IsMastered = true
			card.MasteredAt = &now
			card.MasterCycles++
		}
		return
	}

	if counted {
		card.WrongTotal++
	}
	card.WrongStreakCount++
	card.IsFromWrongAnswer = true
}

// recordCountedAttempt maintains the wrong-answer ledger and the daily stats
// for one counted attempt.
func (s *Service) recordCountedAttempt(ctx context.Context, tx models.Repository, card *models.Card, correct bool, now time.Time) error {
	if err := tx.BumpDailyStat(ctx, card.UserID, utils.StartOfDay(now), 1); err != nil {
		return err
	}

	// The ledger keys on vocab ids; grammar and reading cards stay out.
	if card.ItemType != "vocab" {
		return nil
	}

	if correct {
		wa, err := tx.FindReviewableWrongAnswer(ctx, card.UserID, card.ItemID, card.FolderID, now)
		if err != nil {
			return err
		}
		if wa != nil {
			return tx.CompleteWrongAnswerRecord(ctx, wa.ID, now)
		}
		return nil
	}

	return s.registerWrongAnswer(ctx, tx, card.UserID, card.ItemID, card.FolderID, now)
}

func (s *Service) registerWrongAnswer(ctx context.Context, tx models.Repository, userID, vocabID int64, folderID *int64, now time.Time) error {
	active, err := tx.GetActiveWrongAnswer(ctx, userID, vocabID, folderID, now)
	if err != nil {
		return err
	}

	windowEnd := now.Add(srs.OverdueWindow)
	if active != nil {
		return tx.TouchWrongAnswer(ctx, active.ID, now, windowEnd)
	}

	return tx.CreateWrongAnswer(ctx, &models.WrongAnswer{
		UserID:            userID,
		VocabID:           vocabID,
		FolderID:          folderID,
		Attempts:          1,
		WrongAt:           now,
		ReviewWindowStart: now,
		ReviewWindowEnd:   windowEnd,
	})
}

func (s *Service) updateFolderItem(ctx context.Context, tx models.Repository, card *models.Card, correct, counted bool, now time.Time) error {
	wrongInc := 0
	if !correct {
		wrongInc = 1
		if counted {
			if err := tx.StampFolderItemWrong(ctx, *card.FolderID, card.ID, now); err != nil {
				return err
			}
		}
	}
	return tx.UpdateFolderItemProgress(ctx, *card.FolderID, card.ID, correct, wrongInc, now)
}

// ineligibleStatus maps a non-eligible phase to the caller-facing status:
// frozen when the penalty is running, waiting while a cooldown timer runs,
// otherwise not available.
func ineligibleStatus(phase srs.Phase, snap srs.Snapshot, now time.Time) AnswerStatus {
	if phase == srs.PhaseFrozen {
		return StatusFrozen
	}
	if srs.InWaitingPeriod(snap, now) {
		return StatusWaiting
	}
	return StatusNotAvailable
}

// previewTransition computes the change an ineligible answer would have made.
// Wrong previews assume the normal (non-overdue) penalty.
func previewTransition(now time.Time, stage int, curve srs.CurveType, correct bool) *Preview {
	var tr srs.Transition
	if correct {
		tr = srs.NextOnCorrect(now, stage, curve)
	} else {
		tr = srs.NextOnWrong(now, stage, curve, false)
	}
	return &Preview{Stage: tr.Stage, WaitingUntil: tr.WaitingUntil, Mastered: tr.Mastered}
}

// GetAvailableCardsForReview lists this user's reviewable cards, wrong-answer
// retries first, oldest overdue first.
func (s *Service) GetAvailableCardsForReview(ctx context.Context, userID int64) ([]*models.Card, error) {
	cards, err := s.repo.ListAvailableCards(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list available cards (user_id: %d): %w", userID, err)
	}
	return cards, nil
}

func (s *Service) GetWaitingCardsCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountWaitingCards(ctx, userID, s.clock.Now())
}

func (s *Service) GetSrsStatus(ctx context.Context, userID int64) (*models.SrsStatus, error) {
	return s.repo.GetSrsStatus(ctx, userID, s.clock.Now())
}
