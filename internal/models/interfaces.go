package models

import (
	"context"
	"time"
)

// Repository is the persistence contract the scheduler core depends on.
// Implementations must keep every method usable inside RunInTx, where the
// callback receives a transaction-bound Repository.
type Repository interface {
	RunInTx(ctx context.Context, fn func(Repository) error) error

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID int64) (*User, error)
	UpdateUserStreak(ctx context.Context, userID int64, streak int, studiedAt time.Time) error
	UpdateUserOverdueFlag(ctx context.Context, userID int64, hasOverdue bool, checkedAt time.Time) error
	UserHasOverdueCards(ctx context.Context, userID int64, now time.Time) (bool, error)

	CreateCards(ctx context.Context, cards []*Card) error
	GetCardForUpdate(ctx context.Context, userID, cardID int64, folderID *int64) (*Card, error)
	SaveCardState(ctx context.Context, card *Card) error
	CountFolderCardMastery(ctx context.Context, folderID, userID int64) (total, mastered int, err error)
	ListAvailableCards(ctx context.Context, userID int64, now time.Time) ([]*Card, error)
	CountWaitingCards(ctx context.Context, userID int64, now time.Time) (int, error)
	GetSrsStatus(ctx context.Context, userID int64, now time.Time) (*SrsStatus, error)
	MarkWaitingCardsOverdue(ctx context.Context, now time.Time) ([]int64, error)
	FreezeExpiredOverdueCards(ctx context.Context, now time.Time) ([]int64, error)
	ReleaseExpiredFrozenCards(ctx context.Context, now time.Time) ([]int64, error)

	CreateFolder(ctx context.Context, folder *Folder) error
	GetFolder(ctx context.Context, userID, folderID int64) (*Folder, error)
	GetFolderCurveType(ctx context.Context, folderID int64) (string, error)
	CompleteFolder(ctx context.Context, folderID int64, at time.Time, learnedCount int) error
	FinishFolderCycle(ctx context.Context, folderID int64, completionCount int, name string, anchor, nextReview time.Time) error
	SetFolderMastered(ctx context.Context, folderID int64, name string, at time.Time) error
	ReactivateFolder(ctx context.Context, folderID int64, name string, anchor, nextReview time.Time) error
	ListChildFolders(ctx context.Context, userID, parentID int64) ([]*Folder, error)

	CreateFolderItems(ctx context.Context, items []*FolderItem) error
	GetFolderItem(ctx context.Context, folderID, cardID int64) (*FolderItem, error)
	UpdateFolderItemProgress(ctx context.Context, folderID, cardID int64, learned bool, wrongInc int, reviewedAt time.Time) error
	StampFolderItemWrong(ctx context.Context, folderID, cardID int64, at time.Time) error
	ResetFolderItems(ctx context.Context, folderID int64) error
	CountFolderItems(ctx context.Context, folderID int64) (total, learned int, err error)

	GetActiveWrongAnswer(ctx context.Context, userID, vocabID int64, folderID *int64, now time.Time) (*WrongAnswer, error)
	CreateWrongAnswer(ctx context.Context, wa *WrongAnswer) error
	TouchWrongAnswer(ctx context.Context, id int64, wrongAt, windowEnd time.Time) error
	CompleteWrongAnswerRecord(ctx context.Context, id int64, at time.Time) error
	FindReviewableWrongAnswer(ctx context.Context, userID, vocabID int64, folderID *int64, now time.Time) (*WrongAnswer, error)
	CountAvailableWrongAnswers(ctx context.Context, userID int64, folderID *int64, now time.Time) (int, error)
	ListWrongAnswersForQuiz(ctx context.Context, userID int64, folderID *int64, limit int) ([]*WrongAnswer, error)
	AutoCompleteExpiredWrongAnswers(ctx context.Context, endedBefore, at time.Time) (int64, error)

	BumpDailyStat(ctx context.Context, userID int64, day time.Time, solvedInc int) error
}
