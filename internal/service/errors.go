package service

import "errors"

var (
	ErrCardNotFound          = errors.New("card not found")
	ErrFolderNotFound        = errors.New("folder not found")
	ErrFolderIncomplete      = errors.New("folder has unlearned items")
	ErrFolderNotMastered     = errors.New("folder is not mastered")
	ErrFolderAlreadyMastered = errors.New("folder is already mastered")
	ErrNoWrongAnswers        = errors.New("no wrong answers available for review")
)
