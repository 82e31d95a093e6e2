package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsp(t time.Time) *time.Time { return &t }

func TestClassifyPhase(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Phase
	}{
		{
			name: "fresh card is first learning",
			snap: Snapshot{Stage: 0},
			want: PhaseFirstLearning,
		},
		{
			name: "frozen wins over everything",
			snap: Snapshot{
				Stage:       3,
				IsOverdue:   true,
				FrozenUntil: tsp(base.Add(time.Hour)),
			},
			want: PhaseFrozen,
		},
		{
			name: "expired freeze no longer counts",
			snap: Snapshot{
				Stage:           2,
				IsOverdue:       true,
				FrozenUntil:     tsp(base.Add(-time.Minute)),
				OverdueDeadline: tsp(base.Add(time.Hour)),
			},
			want: PhaseOverdue,
		},
		{
			name: "overdue inside window",
			snap: Snapshot{
				Stage:           2,
				IsOverdue:       true,
				WaitingUntil:    tsp(base.Add(-2 * time.Hour)),
				OverdueDeadline: tsp(base.Add(22 * time.Hour)),
			},
			want: PhaseOverdue,
		},
		{
			name: "overdue past deadline falls through to waiting",
			snap: Snapshot{
				Stage:           2,
				IsOverdue:       true,
				OverdueDeadline: tsp(base.Add(-time.Minute)),
			},
			want: PhaseWaiting,
		},
		{
			name: "wrong answer cooldown elapsed but not yet swept",
			snap: Snapshot{
				Stage:             3,
				IsFromWrongAnswer: true,
				WaitingUntil:      tsp(base.Add(-time.Hour)),
				OverdueDeadline:   tsp(base.Add(23 * time.Hour)),
			},
			want: PhaseWrongAnswerGap,
		},
		{
			name: "wrong answer cooldown still running",
			snap: Snapshot{
				Stage:             3,
				IsFromWrongAnswer: true,
				WaitingUntil:      tsp(base.Add(time.Hour)),
				OverdueDeadline:   tsp(base.Add(25 * time.Hour)),
			},
			want: PhaseWaiting,
		},
		{
			name: "stage zero with pending retry timer is not first learning",
			snap: Snapshot{
				Stage:        0,
				WaitingUntil: tsp(base.Add(time.Hour)),
			},
			want: PhaseWaiting,
		},
		{
			name: "stage zero wrong answer lineage is not first learning",
			snap: Snapshot{
				Stage:             0,
				IsFromWrongAnswer: true,
			},
			want: PhaseWaiting,
		},
		{
			name: "future next review keeps first learning off",
			snap: Snapshot{
				Stage:        0,
				NextReviewAt: tsp(base.Add(time.Hour)),
			},
			want: PhaseWaiting,
		},
		{
			name: "waiting period running",
			snap: Snapshot{
				Stage:        2,
				WaitingUntil: tsp(base.Add(5 * time.Hour)),
			},
			want: PhaseWaiting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPhase(tt.snap, base))
		})
	}
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible(PhaseFirstLearning, CurveLong))
	assert.True(t, Eligible(PhaseOverdue, CurveLong))
	assert.True(t, Eligible(PhaseWrongAnswerGap, CurveShort))
	assert.False(t, Eligible(PhaseWaiting, CurveLong))
	assert.False(t, Eligible(PhaseFrozen, CurveLong))

	// Free-curve cards are always stage-eligible.
	assert.True(t, Eligible(PhaseWaiting, CurveFree))
	assert.True(t, Eligible(PhaseFrozen, CurveFree))
}

func TestCountsInStats(t *testing.T) {
	assert.True(t, CountsInStats(PhaseOverdue, CurveLong, false))
	assert.False(t, CountsInStats(PhaseWaiting, CurveLong, true))

	// Free curve counts only the first attempt of the day.
	assert.True(t, CountsInStats(PhaseWaiting, CurveFree, true))
	assert.False(t, CountsInStats(PhaseWaiting, CurveFree, false))
}

func TestNextOnCorrect(t *testing.T) {
	t.Run("advances one stage and starts timers", func(t *testing.T) {
		tr := NextOnCorrect(base, 1, CurveLong)
		assert.Equal(t, 2, tr.Stage)
		require.NotNil(t, tr.WaitingUntil)
		assert.Equal(t, base.Add(24*time.Hour), *tr.WaitingUntil)
		assert.Equal(t, tr.WaitingUntil, tr.NextReviewAt)
		assert.False(t, tr.Mastered)
	})

	t.Run("final stage masters and clears timers", func(t *testing.T) {
		tr := NextOnCorrect(base, 7, CurveLong)
		assert.Equal(t, 0, tr.Stage)
		assert.True(t, tr.Mastered)
		assert.Nil(t, tr.WaitingUntil)
		assert.Nil(t, tr.NextReviewAt)
	})

	t.Run("short curve masters at stage 10", func(t *testing.T) {
		tr := NextOnCorrect(base, 10, CurveShort)
		assert.True(t, tr.Mastered)
		assert.Equal(t, 0, tr.Stage)
	})

	t.Run("free curve climbs without timers or mastery", func(t *testing.T) {
		tr := NextOnCorrect(base, 41, CurveFree)
		assert.Equal(t, 42, tr.Stage)
		assert.Nil(t, tr.WaitingUntil)
		assert.False(t, tr.Mastered)
	})
}

func TestNextOnWrong(t *testing.T) {
	t.Run("stage zero miss advances to stage one with its wait", func(t *testing.T) {
		tr := NextOnWrong(base, 0, CurveLong, false)
		assert.Equal(t, 1, tr.Stage)
		require.NotNil(t, tr.WaitingUntil)
		assert.Equal(t, base.Add(time.Hour), *tr.WaitingUntil)
	})

	t.Run("normal miss resets to zero behind a day cooldown", func(t *testing.T) {
		tr := NextOnWrong(base, 4, CurveLong, false)
		assert.Equal(t, 0, tr.Stage)
		require.NotNil(t, tr.WaitingUntil)
		assert.Equal(t, base.Add(24*time.Hour), *tr.WaitingUntil)
	})

	t.Run("overdue miss preserves the stage", func(t *testing.T) {
		tr := NextOnWrong(base, 3, CurveLong, true)
		assert.Equal(t, 3, tr.Stage)
		require.NotNil(t, tr.WaitingUntil)
		assert.Equal(t, base.Add(24*time.Hour), *tr.WaitingUntil)
	})

	t.Run("overdue stage zero miss still advances", func(t *testing.T) {
		tr := NextOnWrong(base, 0, CurveLong, true)
		assert.Equal(t, 1, tr.Stage)
	})

	t.Run("free curve miss drops to zero without timers", func(t *testing.T) {
		tr := NextOnWrong(base, 5, CurveFree, false)
		assert.Equal(t, 0, tr.Stage)
		assert.Nil(t, tr.WaitingUntil)

		tr = NextOnWrong(base, 0, CurveFree, false)
		assert.Equal(t, 1, tr.Stage)
	})
}
