package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/romanzh1/vocab-srs/internal/models"
)

// reviewWindowGrace is how long an expired review window lingers before the
// cleanup closes the entry unreviewed.
const reviewWindowGrace = 72 * time.Hour

// AddWrongAnswer records a miss in the ledger outside the answer processor,
// for callers that grade answers themselves (quiz mode). An open entry for
// the same vocab gets its attempt counter bumped and its window extended.
func (s *Service) AddWrongAnswer(ctx context.Context, userID, vocabID int64, folderID *int64) error {
	now := s.clock.Now()
	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		return s.registerWrongAnswer(ctx, tx, userID, vocabID, folderID, now)
	})
	if err != nil {
		return fmt.Errorf("add wrong answer (user_id: %d, vocab_id: %d): %w", userID, vocabID, err)
	}
	return nil
}

// CompleteWrongAnswer closes the reviewable entry for one vocab. Returns
// ErrNoWrongAnswers when no entry is inside its review window.
func (s *Service) CompleteWrongAnswer(ctx context.Context, userID, vocabID int64, folderID *int64) error {
	now := s.clock.Now()

	wa, err := s.repo.FindReviewableWrongAnswer(ctx, userID, vocabID, folderID, now)
	if err != nil {
		return err
	}
	if wa == nil {
		return ErrNoWrongAnswers
	}

	return s.repo.CompleteWrongAnswerRecord(ctx, wa.ID, now)
}

// CompleteWrongAnswers resolves the reviewable entries for several vocabs at
// once, skipping vocabs with no open window, and reports how many closed.
func (s *Service) CompleteWrongAnswers(ctx context.Context, userID int64, vocabIDs []int64, folderID *int64) (int, error) {
	now := s.clock.Now()
	completed := 0

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		for _, vocabID := range vocabIDs {
			wa, err := tx.FindReviewableWrongAnswer(ctx, userID, vocabID, folderID, now)
			if err != nil {
				return err
			}
			if wa == nil {
				continue
			}
			if err := tx.CompleteWrongAnswerRecord(ctx, wa.ID, now); err != nil {
				return err
			}
			completed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("complete wrong answers (user_id: %d, count: %d): %w", userID, len(vocabIDs), err)
	}

	return completed, nil
}

func (s *Service) GetAvailableWrongAnswersCount(ctx context.Context, userID int64, folderID *int64) (int, error) {
	return s.repo.CountAvailableWrongAnswers(ctx, userID, folderID, s.clock.Now())
}

// GenerateWrongAnswerQuiz picks up to limit open entries, oldest miss first,
// for a retry quiz.
func (s *Service) GenerateWrongAnswerQuiz(ctx context.Context, userID int64, folderID *int64, limit int) ([]*models.WrongAnswer, error) {
	if limit <= 0 {
		limit = 10
	}

	was, err := s.repo.ListWrongAnswersForQuiz(ctx, userID, folderID, limit)
	if err != nil {
		return nil, err
	}
	if len(was) == 0 {
		return nil, ErrNoWrongAnswers
	}

	return was, nil
}

// CleanupExpiredReviewWindows closes ledger entries whose 24-hour review
// window ended more than the grace period ago without a re-review. The card
// side of the miss is handled by the freeze sweep; this only tidies the
// ledger.
func (s *Service) CleanupExpiredReviewWindows(ctx context.Context) (int64, error) {
	now := s.clock.Now()

	closed, err := s.repo.AutoCompleteExpiredWrongAnswers(ctx, now.Add(-reviewWindowGrace), now)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired review windows: %w", err)
	}
	if closed > 0 {
		zap.S().Infow("auto-completed expired wrong answers", "count", closed)
	}

	return closed, nil
}
