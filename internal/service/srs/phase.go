package srs

import "time"

// Phase is a card's scheduling state, derived from timestamps at evaluation
// time. It is never stored; both the answer processor and the sweep re-derive
// it so they agree under time acceleration.
type Phase int

const (
	// PhaseFirstLearning: stage-0 card that has never entered the timer
	// cycle; reviewing counts immediately.
	PhaseFirstLearning Phase = iota
	// PhaseOverdue: the waiting period elapsed and the card is inside its
	// review window.
	PhaseOverdue
	// PhaseWrongAnswerGap: a wrong-answer card whose cooldown elapsed but
	// whose overdue window is still tracked from the previous cycle.
	PhaseWrongAnswerGap
	// PhaseFrozen: the card missed its overdue deadline; reviews do not
	// affect the schedule until the penalty expires.
	PhaseFrozen
	// PhaseWaiting: timers still running, or the card is simply not due.
	PhaseWaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseFirstLearning:
		return "first_learning"
	case PhaseOverdue:
		return "overdue"
	case PhaseWrongAnswerGap:
		return "wrong_answer_gap"
	case PhaseFrozen:
		return "frozen"
	default:
		return "waiting"
	}
}

// Snapshot is the minimal card state needed to classify its phase.
type Snapshot struct {
	Stage             int
	NextReviewAt      *time.Time
	WaitingUntil      *time.Time
	OverdueDeadline   *time.Time
	FrozenUntil       *time.Time
	IsOverdue         bool
	IsFromWrongAnswer bool
}

// ClassifyPhase derives the card's phase from its timestamps. Frozen wins
// over everything; the remaining checks mirror the eligibility ladder of the
// answer processor.
func ClassifyPhase(s Snapshot, now time.Time) Phase {
	if s.FrozenUntil != nil && now.Before(*s.FrozenUntil) {
		return PhaseFrozen
	}

	if s.Stage == 0 && s.WaitingUntil == nil && !s.IsFromWrongAnswer &&
		(s.NextReviewAt == nil || !s.NextReviewAt.After(now)) {
		return PhaseFirstLearning
	}

	if s.IsOverdue && (s.OverdueDeadline == nil || now.Before(*s.OverdueDeadline)) {
		return PhaseOverdue
	}

	if s.IsFromWrongAnswer && s.WaitingUntil != nil && !now.Before(*s.WaitingUntil) &&
		s.OverdueDeadline != nil && now.Before(*s.OverdueDeadline) {
		return PhaseWrongAnswerGap
	}

	return PhaseWaiting
}

// InWaitingPeriod reports whether the card's cooldown timer is still running;
// used to distinguish the "waiting" outcome from "not available".
func InWaitingPeriod(s Snapshot, now time.Time) bool {
	return s.WaitingUntil != nil && now.Before(*s.WaitingUntil)
}

// Eligible reports whether an answer in this phase may change persisted card
// state. Free-curve cards are stage-eligible in every phase.
func Eligible(phase Phase, curve CurveType) bool {
	if curve == CurveFree {
		return true
	}
	switch phase {
	case PhaseFirstLearning, PhaseOverdue, PhaseWrongAnswerGap:
		return true
	default:
		return false
	}
}

// CountsInStats decides whether the attempt touches lifetime counters,
// streaks, daily stats and the wrong-answer ledger. For timed curves the
// stat-counted set equals the state-changing set; the free curve counts only
// the first attempt of the calendar day.
func CountsInStats(phase Phase, curve CurveType, firstAttemptToday bool) bool {
	if curve == CurveFree {
		return firstAttemptToday
	}
	return Eligible(phase, curve)
}

// Transition is the outcome of one eligible answer: the target stage, the
// timers it starts, and whether the curve was completed.
type Transition struct {
	Stage        int
	WaitingUntil *time.Time
	NextReviewAt *time.Time
	Mastered     bool
}

// NextOnCorrect computes the stage advance for a correct eligible answer.
func NextOnCorrect(now time.Time, stage int, curve CurveType) Transition {
	if curve == CurveFree {
		return Transition{Stage: stage + 1}
	}

	if IsFinalStage(stage, curve) {
		return Transition{Stage: 0, Mastered: true}
	}

	next := stage + 1
	if next > MaxStage(curve) {
		next = MaxStage(curve)
	}

	wu := WaitingUntil(now, next, curve)
	return Transition{Stage: next, WaitingUntil: wu, NextReviewAt: wu}
}

// NextOnWrong computes the demotion for a counted miss. A stage-0 miss always
// advances to stage 1; an overdue-phase miss at stage >= 1 preserves the
// stage behind a retry cooldown instead of resetting it.
func NextOnWrong(now time.Time, stage int, curve CurveType, overdue bool) Transition {
	if curve == CurveFree {
		if stage == 0 {
			return Transition{Stage: 1}
		}
		return Transition{Stage: 0}
	}

	if stage == 0 {
		wu := WaitingUntil(now, 1, curve)
		return Transition{Stage: 1, WaitingUntil: wu, NextReviewAt: wu}
	}

	target := 0
	if overdue {
		target = stage
	}
	wu := WrongAnswerWaitingUntil(now, stage)
	return Transition{Stage: target, WaitingUntil: &wu, NextReviewAt: &wu}
}
