package srs

import (
	"time"

	"go.uber.org/zap"
)

// CurveType selects the forgetting-curve policy a folder applies to its cards.
type CurveType string

const (
	CurveLong  CurveType = "long"
	CurveShort CurveType = "short"
	CurveFree  CurveType = "free"
)

// Waiting periods per stage, in hours. Index 0 holds the stage-1 delay;
// stage 0 always waits zero (immediate re-review).
var (
	longCurveHours  = []int{1, 24, 72, 168, 312, 696, 1440}
	shortCurveHours = []int{1, 24, 48, 48, 48, 48, 48, 48, 48, 48}
)

const (
	// OverdueWindow is how long a card stays reviewable after its waiting
	// period ends before it is frozen.
	OverdueWindow = 24 * time.Hour

	// FrozenPenalty is the lockout applied when a card misses its overdue
	// deadline.
	FrozenPenalty = 24 * time.Hour

	wrongAnswerShortWait = time.Hour
	wrongAnswerLongWait  = 24 * time.Hour
)

// ParseCurveType normalizes a stored curve type, falling back to long.
func ParseCurveType(s string) CurveType {
	switch CurveType(s) {
	case CurveLong, CurveShort, CurveFree:
		return CurveType(s)
	default:
		return CurveLong
	}
}

// MaxStage returns the last rung of the curve's delay table. Free-curve
// cards have no ceiling; callers must not use MaxStage to cap them.
func MaxStage(curve CurveType) int {
	switch curve {
	case CurveShort:
		return len(shortCurveHours)
	case CurveFree:
		return 0
	default:
		return len(longCurveHours)
	}
}

// IsFinalStage reports whether a correct answer at this stage completes the
// curve. Free-curve cards never reach a terminal stage; their mastery is not
// stage-driven.
func IsFinalStage(stage int, curve CurveType) bool {
	if curve == CurveFree {
		return false
	}
	return stage >= MaxStage(curve)
}

// WaitingPeriod returns the cooldown before a card at the given stage is due
// again. Stage 0 and the free curve wait zero.
func WaitingPeriod(stage int, curve CurveType) time.Duration {
	if curve == CurveFree || stage <= 0 {
		return 0
	}

	table := longCurveHours
	if curve == CurveShort {
		table = shortCurveHours
	}

	idx := stage - 1
	if idx >= len(table) {
		zap.L().Warn("stage beyond delay table, clamping to last entry",
			zap.Int("stage", stage), zap.String("curve", string(curve)))
		idx = len(table) - 1
	}

	return time.Duration(table[idx]) * time.Hour
}

// WaitingUntil computes the timestamp the waiting period ends, or nil when
// there is no waiting period at all.
func WaitingUntil(now time.Time, stage int, curve CurveType) *time.Time {
	period := WaitingPeriod(stage, curve)
	if period == 0 {
		return nil
	}
	t := now.Add(period)
	return &t
}

// WrongAnswerWaitingUntil returns the retry cooldown after a counted miss:
// one hour when the mistake happened at stage 0, otherwise a full day.
func WrongAnswerWaitingUntil(now time.Time, stageAtMistake int) time.Time {
	if stageAtMistake == 0 {
		return now.Add(wrongAnswerShortWait)
	}
	return now.Add(wrongAnswerLongWait)
}

// OverdueDeadline is the hard cutoff of the overdue window that starts when
// the waiting period elapses.
func OverdueDeadline(waitingUntil time.Time) time.Time {
	return waitingUntil.Add(OverdueWindow)
}
