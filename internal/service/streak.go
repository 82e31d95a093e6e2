package service

import (
	"context"
	"time"

	"github.com/romanzh1/vocab-srs/internal/models"
	"github.com/romanzh1/vocab-srs/pkg/utils"
)

// bumpStreak advances the user's daily streak for a counted attempt: same
// day keeps it, a study on the following day extends it, a gap resets to 1.
func (s *Service) bumpStreak(ctx context.Context, tx models.Repository, userID int64, now time.Time) (*StreakInfo, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	streak, extended := nextStreak(user.Streak, user.LastStudiedAt, now)
	if streak == user.Streak && user.LastStudiedAt != nil && utils.DatesEqual(*user.LastStudiedAt, now) {
		return &StreakInfo{Current: streak}, nil
	}

	if err := tx.UpdateUserStreak(ctx, userID, streak, now); err != nil {
		return nil, err
	}

	return &StreakInfo{Current: streak, Extended: extended}, nil
}

func nextStreak(current int, lastStudiedAt *time.Time, now time.Time) (streak int, extended bool) {
	switch {
	case lastStudiedAt == nil:
		return 1, true
	case utils.DatesEqual(*lastStudiedAt, now):
		return current, false
	case utils.IsYesterday(*lastStudiedAt, now):
		return current + 1, true
	default:
		return 1, true
	}
}
