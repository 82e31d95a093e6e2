package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/romanzh1/vocab-srs/internal/models"
	"github.com/romanzh1/vocab-srs/pkg/utils"
)

// fakeRepo is an in-memory Repository for service tests. RunInTx runs the
// callback directly against the same store; rollback is not simulated.
type fakeRepo struct {
	users        map[int64]*models.User
	cards        map[int64]*models.Card
	folders      map[int64]*models.Folder
	items        map[string]*models.FolderItem
	wrongAnswers map[int64]*models.WrongAnswer
	stats        map[string]int
	nextID       int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        map[int64]*models.User{},
		cards:        map[int64]*models.Card{},
		folders:      map[int64]*models.Folder{},
		items:        map[string]*models.FolderItem{},
		wrongAnswers: map[int64]*models.WrongAnswer{},
		stats:        map[string]int{},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func itemKey(folderID, cardID int64) string {
	return fmt.Sprintf("%d/%d", folderID, cardID)
}

func statKey(userID int64, day time.Time) string {
	return fmt.Sprintf("%d/%s", userID, utils.StartOfDay(day).Format("2006-01-02"))
}

func (f *fakeRepo) RunInTx(ctx context.Context, fn func(models.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) CreateUser(_ context.Context, user *models.User) error {
	user.ID = f.id()
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, userID int64) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdateUserStreak(_ context.Context, userID int64, streak int, studiedAt time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.Streak = streak
	at := studiedAt
	u.LastStudiedAt = &at
	return nil
}

func (f *fakeRepo) UpdateUserOverdueFlag(_ context.Context, userID int64, hasOverdue bool, checkedAt time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.HasOverdueCards = hasOverdue
	at := checkedAt
	u.LastOverdueCheck = &at
	return nil
}

func (f *fakeRepo) UserHasOverdueCards(_ context.Context, userID int64, now time.Time) (bool, error) {
	for _, c := range f.cards {
		if c.UserID == userID && cardReviewable(c, now) {
			return true, nil
		}
	}
	return false, nil
}

func cardReviewable(c *models.Card, now time.Time) bool {
	if !c.IsOverdue {
		return false
	}
	if c.OverdueDeadline != nil && !c.OverdueDeadline.After(now) {
		return false
	}
	if c.FrozenUntil != nil && c.FrozenUntil.After(now) {
		return false
	}
	return true
}

func (f *fakeRepo) CreateCards(_ context.Context, cards []*models.Card) error {
	for _, c := range cards {
		c.ID = f.id()
		cp := *c
		f.cards[c.ID] = &cp
	}
	return nil
}

func (f *fakeRepo) GetCardForUpdate(_ context.Context, userID, cardID int64, folderID *int64) (*models.Card, error) {
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, sql.ErrNoRows
	}
	if folderID != nil && (c.FolderID == nil || *c.FolderID != *folderID) {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) SaveCardState(_ context.Context, card *models.Card) error {
	if _, ok := f.cards[card.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *card
	f.cards[card.ID] = &cp
	return nil
}

func (f *fakeRepo) CountFolderCardMastery(_ context.Context, folderID, userID int64) (int, int, error) {
	total, mastered := 0, 0
	for _, it := range f.items {
		if it.FolderID != folderID {
			continue
		}
		c, ok := f.cards[it.CardID]
		if !ok || c.UserID != userID {
			continue
		}
		total++
		if c.IsMastered {
			mastered++
		}
	}
	return total, mastered, nil
}

func (f *fakeRepo) ListAvailableCards(_ context.Context, userID int64, now time.Time) ([]*models.Card, error) {
	var out []*models.Card
	for _, c := range f.cards {
		if c.UserID == userID && cardReviewable(c, now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFromWrongAnswer != out[j].IsFromWrongAnswer {
			return out[i].IsFromWrongAnswer
		}
		a, b := out[i].OverdueStartAt, out[j].OverdueStartAt
		if a == nil || b == nil {
			return b == nil
		}
		return a.Before(*b)
	})
	return out, nil
}

func (f *fakeRepo) CountWaitingCards(_ context.Context, userID int64, now time.Time) (int, error) {
	count := 0
	for _, c := range f.cards {
		if c.UserID == userID && !c.IsOverdue && c.WaitingUntil != nil && c.WaitingUntil.After(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) GetSrsStatus(_ context.Context, userID int64, now time.Time) (*models.SrsStatus, error) {
	st := &models.SrsStatus{}
	for _, c := range f.cards {
		if c.UserID != userID {
			continue
		}
		st.TotalCards++
		if c.IsMastered {
			st.MasteredCount++
		}
		if c.FrozenUntil != nil && c.FrozenUntil.After(now) {
			st.FrozenCount++
			continue
		}
		if c.IsOverdue && (c.OverdueDeadline == nil || c.OverdueDeadline.After(now)) {
			st.OverdueCount++
		} else if c.WaitingUntil != nil && c.WaitingUntil.After(now) && !c.IsOverdue {
			st.WaitingCount++
		}
	}
	if st.TotalCards > 0 {
		st.MasteryRate = float64(st.MasteredCount) / float64(st.TotalCards) * 100
	}
	return st, nil
}

func (f *fakeRepo) MarkWaitingCardsOverdue(_ context.Context, now time.Time) ([]int64, error) {
	var userIDs []int64
	for _, c := range f.cards {
		if c.WaitingUntil == nil || c.WaitingUntil.After(now) || c.IsOverdue {
			continue
		}
		if c.FrozenUntil != nil && c.FrozenUntil.After(now) {
			continue
		}
		c.IsOverdue = true
		at := now
		c.OverdueStartAt = &at
		deadline := c.WaitingUntil.Add(24 * time.Hour)
		c.OverdueDeadline = &deadline
		c.WaitingUntil = nil
		userIDs = append(userIDs, c.UserID)
	}
	return userIDs, nil
}

func (f *fakeRepo) FreezeExpiredOverdueCards(_ context.Context, now time.Time) ([]int64, error) {
	var userIDs []int64
	for _, c := range f.cards {
		if !c.IsOverdue || c.OverdueDeadline == nil || c.OverdueDeadline.After(now) {
			continue
		}
		frozen := now.Add(24 * time.Hour)
		c.FrozenUntil = &frozen
		c.IsOverdue = false
		c.OverdueDeadline = nil
		c.OverdueStartAt = nil
		c.WaitingUntil = nil
		c.NextReviewAt = nil
		c.IsFromWrongAnswer = true
		userIDs = append(userIDs, c.UserID)
	}
	return userIDs, nil
}

func (f *fakeRepo) ReleaseExpiredFrozenCards(_ context.Context, now time.Time) ([]int64, error) {
	var userIDs []int64
	for _, c := range f.cards {
		if c.FrozenUntil == nil || c.FrozenUntil.After(now) {
			continue
		}
		c.FrozenUntil = nil
		c.IsOverdue = true
		at := now
		c.OverdueStartAt = &at
		deadline := now.Add(24 * time.Hour)
		c.OverdueDeadline = &deadline
		userIDs = append(userIDs, c.UserID)
	}
	return userIDs, nil
}

func (f *fakeRepo) CreateFolder(_ context.Context, folder *models.Folder) error {
	folder.ID = f.id()
	cp := *folder
	f.folders[folder.ID] = &cp
	return nil
}

func (f *fakeRepo) GetFolder(_ context.Context, userID, folderID int64) (*models.Folder, error) {
	fl, ok := f.folders[folderID]
	if !ok || fl.UserID != userID {
		return nil, sql.ErrNoRows
	}
	cp := *fl
	return &cp, nil
}

func (f *fakeRepo) GetFolderCurveType(_ context.Context, folderID int64) (string, error) {
	fl, ok := f.folders[folderID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return fl.LearningCurveType, nil
}

func (f *fakeRepo) CompleteFolder(_ context.Context, folderID int64, at time.Time, learnedCount int) error {
	fl, ok := f.folders[folderID]
	if !ok {
		return sql.ErrNoRows
	}
	fl.IsCompleted = true
	t := at
	fl.CompletedAt = &t
	fl.CompletedWordsCount = learnedCount
	return nil
}

func (f *fakeRepo) FinishFolderCycle(_ context.Context, folderID int64, completionCount int, name string, anchor, nextReview time.Time) error {
	fl, ok := f.folders[folderID]
	if !ok {
		return sql.ErrNoRows
	}
	fl.CompletionCount = completionCount
	fl.Name = name
	a, n := anchor, nextReview
	fl.CycleAnchorAt = &a
	fl.NextReviewDate = &n
	fl.IsCompleted = false
	fl.CompletedAt = nil
	return nil
}

func (f *fakeRepo) SetFolderMastered(_ context.Context, folderID int64, name string, at time.Time) error {
	fl, ok := f.folders[folderID]
	if !ok {
		return sql.ErrNoRows
	}
	fl.IsFolderMastered = true
	t := at
	fl.FolderMasteredAt = &t
	fl.Name = name
	fl.AlarmActive = false
	return nil
}

func (f *fakeRepo) ReactivateFolder(_ context.Context, folderID int64, name string, anchor, nextReview time.Time) error {
	fl, ok := f.folders[folderID]
	if !ok {
		return sql.ErrNoRows
	}
	fl.IsFolderMastered = false
	fl.FolderMasteredAt = nil
	fl.Name = name
	a, n := anchor, nextReview
	fl.CycleAnchorAt = &a
	fl.NextReviewDate = &n
	fl.AlarmActive = true
	fl.IsCompleted = false
	fl.CompletedAt = nil
	return nil
}

func (f *fakeRepo) ListChildFolders(_ context.Context, userID, parentID int64) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, fl := range f.folders {
		if fl.UserID == userID && fl.ParentID != nil && *fl.ParentID == parentID {
			cp := *fl
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateFolderItems(_ context.Context, items []*models.FolderItem) error {
	for _, it := range items {
		cp := *it
		f.items[itemKey(it.FolderID, it.CardID)] = &cp
	}
	return nil
}

func (f *fakeRepo) GetFolderItem(_ context.Context, folderID, cardID int64) (*models.FolderItem, error) {
	it, ok := f.items[itemKey(folderID, cardID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *it
	return &cp, nil
}

func (f *fakeRepo) UpdateFolderItemProgress(_ context.Context, folderID, cardID int64, learned bool, wrongInc int, reviewedAt time.Time) error {
	it, ok := f.items[itemKey(folderID, cardID)]
	if !ok {
		return sql.ErrNoRows
	}
	it.Learned = it.Learned || learned
	it.WrongCount += wrongInc
	at := reviewedAt
	it.LastReviewedAt = &at
	return nil
}

func (f *fakeRepo) StampFolderItemWrong(_ context.Context, folderID, cardID int64, at time.Time) error {
	it, ok := f.items[itemKey(folderID, cardID)]
	if !ok {
		return sql.ErrNoRows
	}
	t := at
	it.LastWrongAt = &t
	return nil
}

func (f *fakeRepo) ResetFolderItems(_ context.Context, folderID int64) error {
	for _, it := range f.items {
		if it.FolderID == folderID {
			it.Learned = false
			it.LastReviewedAt = nil
		}
	}
	return nil
}

func (f *fakeRepo) CountFolderItems(_ context.Context, folderID int64) (int, int, error) {
	total, learned := 0, 0
	for _, it := range f.items {
		if it.FolderID != folderID {
			continue
		}
		total++
		if it.Learned {
			learned++
		}
	}
	return total, learned, nil
}

func wrongAnswerMatches(wa *models.WrongAnswer, userID, vocabID int64, folderID *int64) bool {
	if wa.UserID != userID || wa.VocabID != vocabID {
		return false
	}
	if folderID != nil && (wa.FolderID == nil || *wa.FolderID != *folderID) {
		return false
	}
	return true
}

func (f *fakeRepo) GetActiveWrongAnswer(_ context.Context, userID, vocabID int64, folderID *int64, now time.Time) (*models.WrongAnswer, error) {
	for _, wa := range f.wrongAnswers {
		if wrongAnswerMatches(wa, userID, vocabID, folderID) && !wa.IsCompleted && wa.ReviewWindowEnd.After(now) {
			cp := *wa
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateWrongAnswer(_ context.Context, wa *models.WrongAnswer) error {
	wa.ID = f.id()
	cp := *wa
	f.wrongAnswers[wa.ID] = &cp
	return nil
}

func (f *fakeRepo) TouchWrongAnswer(_ context.Context, id int64, wrongAt, windowEnd time.Time) error {
	wa, ok := f.wrongAnswers[id]
	if !ok {
		return sql.ErrNoRows
	}
	wa.Attempts++
	wa.WrongAt = wrongAt
	wa.ReviewWindowEnd = windowEnd
	return nil
}

func (f *fakeRepo) CompleteWrongAnswerRecord(_ context.Context, id int64, at time.Time) error {
	wa, ok := f.wrongAnswers[id]
	if !ok {
		return sql.ErrNoRows
	}
	wa.IsCompleted = true
	t := at
	wa.ReviewedAt = &t
	return nil
}

func (f *fakeRepo) FindReviewableWrongAnswer(_ context.Context, userID, vocabID int64, folderID *int64, now time.Time) (*models.WrongAnswer, error) {
	for _, wa := range f.wrongAnswers {
		if wrongAnswerMatches(wa, userID, vocabID, folderID) && wa.Reviewable(now) {
			cp := *wa
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CountAvailableWrongAnswers(_ context.Context, userID int64, folderID *int64, now time.Time) (int, error) {
	count := 0
	for _, wa := range f.wrongAnswers {
		if wa.UserID != userID {
			continue
		}
		if folderID != nil && (wa.FolderID == nil || *wa.FolderID != *folderID) {
			continue
		}
		if wa.Reviewable(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) ListWrongAnswersForQuiz(_ context.Context, userID int64, folderID *int64, limit int) ([]*models.WrongAnswer, error) {
	var out []*models.WrongAnswer
	for _, wa := range f.wrongAnswers {
		if wa.UserID != userID || wa.IsCompleted {
			continue
		}
		if folderID != nil && (wa.FolderID == nil || *wa.FolderID != *folderID) {
			continue
		}
		cp := *wa
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WrongAt.Before(out[j].WrongAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) AutoCompleteExpiredWrongAnswers(_ context.Context, endedBefore, at time.Time) (int64, error) {
	var n int64
	for _, wa := range f.wrongAnswers {
		if !wa.IsCompleted && wa.ReviewWindowEnd.Before(endedBefore) {
			wa.IsCompleted = true
			t := at
			wa.ReviewedAt = &t
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) BumpDailyStat(_ context.Context, userID int64, day time.Time, solvedInc int) error {
	f.stats[statKey(userID, day)] += solvedInc
	return nil
}
