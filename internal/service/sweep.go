package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/romanzh1/vocab-srs/internal/models"
)

// SweepReport summarizes one pass of the phase sweep.
type SweepReport struct {
	WaitingToOverdue int `json:"waiting_to_overdue"`
	OverdueToFrozen  int `json:"overdue_to_frozen"`
	FrozenReleased   int `json:"frozen_released"`
	UsersRefreshed   int `json:"users_refreshed"`
}

// RunOverdueSweep advances every card whose timers elapsed: waiting cards
// open their overdue window, cards past their deadline freeze, thawed cards
// come back into a fresh window. Each step is a timestamp-guarded set update,
// so re-running the sweep is a no-op until the clock moves.
//
// Freeze runs before open so a card whose window both opened and expired
// between sweeps is not frozen in the same pass it became reviewable.
func (s *Service) RunOverdueSweep(ctx context.Context) (*SweepReport, error) {
	now := s.clock.Now()
	report := &SweepReport{}
	touched := map[int64]struct{}{}

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		frozen, err := tx.FreezeExpiredOverdueCards(ctx, now)
		if err != nil {
			return err
		}
		report.OverdueToFrozen = len(frozen)

		released, err := tx.ReleaseExpiredFrozenCards(ctx, now)
		if err != nil {
			return err
		}
		report.FrozenReleased = len(released)

		overdue, err := tx.MarkWaitingCardsOverdue(ctx, now)
		if err != nil {
			return err
		}
		report.WaitingToOverdue = len(overdue)

		for _, ids := range [][]int64{frozen, released, overdue} {
			for _, id := range ids {
				touched[id] = struct{}{}
			}
		}

		for userID := range touched {
			hasOverdue, err := tx.UserHasOverdueCards(ctx, userID, now)
			if err != nil {
				return err
			}
			if err := tx.UpdateUserOverdueFlag(ctx, userID, hasOverdue, now); err != nil {
				return err
			}
		}
		report.UsersRefreshed = len(touched)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.WaitingToOverdue+report.OverdueToFrozen+report.FrozenReleased > 0 {
		zap.S().Infow("phase sweep applied",
			"waiting_to_overdue", report.WaitingToOverdue,
			"overdue_to_frozen", report.OverdueToFrozen,
			"frozen_released", report.FrozenReleased,
			"users_refreshed", report.UsersRefreshed)
	}

	return report, nil
}
