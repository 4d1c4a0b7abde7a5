package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	// close 110, emaFast 100, atr 5.5 -> atrPct 0.05, score = 0.1/0.05 = 2
	assert.InDelta(t, 2.0, Score(110, 100, 5.5), 1e-12)
}

func TestScoreEpsFloor(t *testing.T) {
	// Zero ATR must not divide by zero; denominator floors at Eps.
	got := Score(101, 100, 0)
	want := (101.0/100.0 - 1.0) / Eps
	assert.InDelta(t, want, got, math.Abs(want)*1e-12)
}

func TestScoreDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, Score(0, 100, 5))
	assert.Equal(t, 0.0, Score(100, 0, 5))
}

func TestScoreSignMatchesTrend(t *testing.T) {
	assert.Positive(t, Score(105, 100, 2))
	assert.Negative(t, Score(95, 100, 2))
}

func TestLongOK(t *testing.T) {
	assert.True(t, LongOK(101, 100, 0, false))
	assert.False(t, LongOK(100, 100, 0, false), "equal EMAs fail the gate")
	assert.False(t, LongOK(99, 100, 1, false))

	// MACD gate only binds when enabled.
	assert.True(t, LongOK(101, 100, -1, false))
	assert.False(t, LongOK(101, 100, -1, true))
	assert.False(t, LongOK(101, 100, 0, true))
	assert.True(t, LongOK(101, 100, 0.5, true))
}

func TestShouldExit(t *testing.T) {
	assert.True(t, ShouldExit(99, 100))
	assert.False(t, ShouldExit(100, 100))
	assert.False(t, ShouldExit(101, 100))
}
