package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/romanzh1/vocab-srs/internal/models"
	"github.com/romanzh1/vocab-srs/internal/service/srs"
)

const masteredMarker = "⭐ "

var cycleSuffix = regexp.MustCompile(` \(cycle \d+\)$`)

// CreateManualFolder creates a folder with one card per vocab item, all at
// stage 0, ready for first learning.
func (s *Service) CreateManualFolder(ctx context.Context, userID int64, name, curveType string, parentID *int64, vocabIDs []int64) (*models.Folder, error) {
	now := s.clock.Now()

	folder := &models.Folder{
		UserID:            userID,
		ParentID:          parentID,
		Name:              name,
		LearningCurveType: string(srs.ParseCurveType(curveType)),
		Kind:              "manual",
		AlarmActive:       true,
		CycleAnchorAt:     &now,
		NextReviewDate:    &now,
	}

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		if err := tx.CreateFolder(ctx, folder); err != nil {
			return err
		}

		cards := make([]*models.Card, 0, len(vocabIDs))
		for _, vocabID := range vocabIDs {
			cards = append(cards, &models.Card{
				UserID:   userID,
				ItemType: "vocab",
				ItemID:   vocabID,
				FolderID: &folder.ID,
			})
		}
		if err := tx.CreateCards(ctx, cards); err != nil {
			return err
		}

		items := make([]*models.FolderItem, 0, len(cards))
		for _, c := range cards {
			vocabID := c.ItemID
			items = append(items, &models.FolderItem{
				FolderID: folder.ID,
				CardID:   c.ID,
				VocabID:  &vocabID,
			})
		}
		return tx.CreateFolderItems(ctx, items)
	})
	if err != nil {
		return nil, fmt.Errorf("create manual folder (user_id: %d, name: %s): %w", userID, name, err)
	}

	return folder, nil
}

func (s *Service) GetFolder(ctx context.Context, userID, folderID int64) (*models.Folder, error) {
	folder, err := s.repo.GetFolder(ctx, userID, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return folder, nil
}

// CompleteFolderAndScheduleNext closes the current study cycle once every
// item is learned, then schedules the next cycle along the folder's curve.
func (s *Service) CompleteFolderAndScheduleNext(ctx context.Context, userID, folderID int64) (*models.Folder, error) {
	now := s.clock.Now()

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		folder, err := tx.GetFolder(ctx, userID, folderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrFolderNotFound
			}
			return err
		}
		if folder.IsFolderMastered {
			return ErrFolderAlreadyMastered
		}

		total, learned, err := tx.CountFolderItems(ctx, folderID)
		if err != nil {
			return err
		}
		if total == 0 || learned < total {
			return ErrFolderIncomplete
		}

		if err := tx.CompleteFolder(ctx, folderID, now, learned); err != nil {
			return err
		}

		cycle := folder.CompletionCount + 1
		curve := folder.CurveType()
		nextReview := now.Add(cycleWaitingPeriod(cycle, curve))
		name := cycleName(folder.Name, cycle)

		if err := tx.FinishFolderCycle(ctx, folderID, cycle, name, now, nextReview); err != nil {
			return err
		}

		// The last rung of the curve masters the folder itself; items stay
		// learned and the alarm goes quiet.
		if curve != srs.CurveFree && cycle >= srs.MaxStage(curve) {
			mastered := masteredMarker + cycleSuffix.ReplaceAllString(folder.Name, "")
			return tx.SetFolderMastered(ctx, folderID, mastered, now)
		}
		return tx.ResetFolderItems(ctx, folderID)
	})
	if err != nil {
		return nil, err
	}

	folder, err := s.repo.GetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	zap.S().Infow("folder cycle completed",
		"user_id", userID, "folder_id", folderID, "cycle", folder.CompletionCount)
	return folder, nil
}

// RestartMasteredFolder puts a mastered folder back into rotation for a
// fresh learning cycle.
func (s *Service) RestartMasteredFolder(ctx context.Context, userID, folderID int64) (*models.Folder, error) {
	now := s.clock.Now()

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		folder, err := tx.GetFolder(ctx, userID, folderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrFolderNotFound
			}
			return err
		}
		if !folder.IsFolderMastered {
			return ErrFolderNotMastered
		}

		name := strings.TrimPrefix(folder.Name, masteredMarker)
		nextReview := now.Add(24 * time.Hour)

		if err := tx.ReactivateFolder(ctx, folderID, name, now, nextReview); err != nil {
			return err
		}
		return tx.ResetFolderItems(ctx, folderID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetFolder(ctx, userID, folderID)
}

// CheckAndUpdateFolderMasteryStatus marks the folder mastered once every one
// of its cards is mastered, then walks up the parent chain: a parent becomes
// mastered when all of its children are.
func (s *Service) CheckAndUpdateFolderMasteryStatus(ctx context.Context, userID, folderID int64) error {
	now := s.clock.Now()

	folder, err := s.repo.GetFolder(ctx, userID, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFolderNotFound
		}
		return err
	}
	if folder.IsFolderMastered {
		return nil
	}

	total, mastered, err := s.repo.CountFolderCardMastery(ctx, folderID, userID)
	if err != nil {
		return err
	}
	if total == 0 || mastered < total {
		return nil
	}

	name := folder.Name
	if !strings.HasPrefix(name, masteredMarker) {
		name = masteredMarker + name
	}
	if err := s.repo.SetFolderMastered(ctx, folderID, name, now); err != nil {
		return err
	}
	zap.S().Infow("folder mastered", "user_id", userID, "folder_id", folderID)

	if folder.ParentID != nil {
		return s.checkParentMastery(ctx, userID, *folder.ParentID, now)
	}
	return nil
}

func (s *Service) checkParentMastery(ctx context.Context, userID, parentID int64, now time.Time) error {
	parent, err := s.repo.GetFolder(ctx, userID, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if parent.IsFolderMastered {
		return nil
	}

	children, err := s.repo.ListChildFolders(ctx, userID, parentID)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}
	for _, child := range children {
		if !child.IsFolderMastered {
			return nil
		}
	}

	name := parent.Name
	if !strings.HasPrefix(name, masteredMarker) {
		name = masteredMarker + name
	}
	if err := s.repo.SetFolderMastered(ctx, parentID, name, now); err != nil {
		return err
	}
	zap.S().Infow("parent folder mastered", "user_id", userID, "folder_id", parentID)

	if parent.ParentID != nil {
		return s.checkParentMastery(ctx, userID, *parent.ParentID, now)
	}
	return nil
}

// cycleWaitingPeriod maps a completed-cycle count onto the curve's delay
// table; cycles past the table reuse its last entry.
func cycleWaitingPeriod(cycle int, curve srs.CurveType) time.Duration {
	if curve == srs.CurveFree {
		return 0
	}
	if max := srs.MaxStage(curve); cycle > max {
		cycle = max
	}
	return srs.WaitingPeriod(cycle, curve)
}

// cycleName rewrites the folder name with the current cycle marker,
// replacing any marker from the previous cycle.
func cycleName(name string, cycle int) string {
	base := cycleSuffix.ReplaceAllString(name, "")
	return fmt.Sprintf("%s (cycle %d)", base, cycle)
}
