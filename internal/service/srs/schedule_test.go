package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseCurveType(t *testing.T) {
	assert.Equal(t, CurveLong, ParseCurveType("long"))
	assert.Equal(t, CurveShort, ParseCurveType("short"))
	assert.Equal(t, CurveFree, ParseCurveType("free"))
	assert.Equal(t, CurveLong, ParseCurveType(""))
	assert.Equal(t, CurveLong, ParseCurveType("bogus"))
}

func TestWaitingPeriod(t *testing.T) {
	tests := []struct {
		name  string
		stage int
		curve CurveType
		want  time.Duration
	}{
		{"long stage 0 has no wait", 0, CurveLong, 0},
		{"long stage 1", 1, CurveLong, time.Hour},
		{"long stage 2", 2, CurveLong, 24 * time.Hour},
		{"long stage 3", 3, CurveLong, 72 * time.Hour},
		{"long stage 4", 4, CurveLong, 168 * time.Hour},
		{"long stage 5", 5, CurveLong, 312 * time.Hour},
		{"long stage 6", 6, CurveLong, 696 * time.Hour},
		{"long stage 7 final", 7, CurveLong, 1440 * time.Hour},
		{"long stage past table clamps", 9, CurveLong, 1440 * time.Hour},
		{"short stage 1", 1, CurveShort, time.Hour},
		{"short stage 2", 2, CurveShort, 24 * time.Hour},
		{"short stage 3 plateau", 3, CurveShort, 48 * time.Hour},
		{"short stage 10 final", 10, CurveShort, 48 * time.Hour},
		{"free curve never waits", 5, CurveFree, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WaitingPeriod(tt.stage, tt.curve))
		})
	}
}

func TestWaitingUntil(t *testing.T) {
	assert.Nil(t, WaitingUntil(base, 0, CurveLong))
	assert.Nil(t, WaitingUntil(base, 3, CurveFree))

	wu := WaitingUntil(base, 2, CurveLong)
	require.NotNil(t, wu)
	assert.Equal(t, base.Add(24*time.Hour), *wu)
}

func TestWrongAnswerWaitingUntil(t *testing.T) {
	assert.Equal(t, base.Add(time.Hour), WrongAnswerWaitingUntil(base, 0))
	assert.Equal(t, base.Add(24*time.Hour), WrongAnswerWaitingUntil(base, 1))
	assert.Equal(t, base.Add(24*time.Hour), WrongAnswerWaitingUntil(base, 6))
}

func TestMaxStageAndIsFinalStage(t *testing.T) {
	assert.Equal(t, 7, MaxStage(CurveLong))
	assert.Equal(t, 10, MaxStage(CurveShort))

	assert.False(t, IsFinalStage(6, CurveLong))
	assert.True(t, IsFinalStage(7, CurveLong))
	assert.True(t, IsFinalStage(10, CurveShort))
	assert.False(t, IsFinalStage(100, CurveFree))
}

func TestOverdueDeadline(t *testing.T) {
	assert.Equal(t, base.Add(24*time.Hour), OverdueDeadline(base))
}
