package market

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSymbolMatrix(t *testing.T) *ReturnMatrix {
	t.Helper()
	a, err := NewPriceSeries("AAA", []Bar{bar(0, 100), bar(1, 110), bar(2, 121)})
	require.NoError(t, err)
	// BBB misses day 1 entirely.
	b, err := NewPriceSeries("BBB", []Bar{bar(0, 50), bar(2, 55)})
	require.NoError(t, err)
	return BuildReturnMatrix(map[string]*PriceSeries{"AAA": a, "BBB": b})
}

func TestBuildReturnMatrixUnionAndPresence(t *testing.T) {
	m := twoSymbolMatrix(t)

	require.Equal(t, 3, m.NumRows(), "date axis is the union")
	assert.Equal(t, []string{"AAA", "BBB"}, m.Symbols, "columns in sorted symbol order")

	// First row: no returns defined for anyone.
	_, ok := m.At(0, "AAA")
	assert.False(t, ok)

	v, ok := m.At(1, "AAA")
	assert.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-12)

	_, ok = m.At(1, "BBB")
	assert.False(t, ok, "gap day is absent, not zero-observed")

	v, ok = m.At(2, "BBB")
	assert.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-12)
}

func TestSlice(t *testing.T) {
	m := twoSymbolMatrix(t)
	s := m.Slice(day(1), day(3))
	require.Equal(t, 2, s.NumRows())
	assert.Equal(t, day(1), s.Dates[0])

	v, ok := s.At(0, "AAA")
	assert.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-12)
}

func TestPermutedMovesWholeRows(t *testing.T) {
	m := twoSymbolMatrix(t)
	p := m.Permuted([]int{2, 0, 1})

	assert.Equal(t, m.Dates, p.Dates, "date axis keeps original order")

	// Row 0 of the permuted matrix is row 2 of the original, for every
	// symbol jointly.
	for _, sym := range m.Symbols {
		origV, origOK := m.At(2, sym)
		gotV, gotOK := p.At(0, sym)
		assert.Equal(t, origOK, gotOK, sym)
		assert.Equal(t, origV, gotV, sym)
	}

	// Original is untouched.
	v, ok := m.At(1, "AAA")
	assert.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-12)
}

func TestPermutedPreservesRowMultiset(t *testing.T) {
	m := twoSymbolMatrix(t)
	rng := rand.New(rand.NewSource(7))
	p := m.Permuted(rng.Perm(m.NumRows()))

	sum := func(m *ReturnMatrix) float64 {
		total := 0.0
		for i := range m.Rows {
			for j := range m.Rows[i] {
				if m.Present[i][j] {
					total += m.Rows[i][j]
				}
			}
		}
		return total
	}
	assert.InDelta(t, sum(m), sum(p), 1e-12)
}

func TestTrailingVol(t *testing.T) {
	closes := []float64{100, 101, 103, 102, 105, 104, 107}
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = bar(i, c)
	}
	ps, err := NewPriceSeries("AAA", bars)
	require.NoError(t, err)
	m := BuildReturnMatrix(map[string]*PriceSeries{"AAA": ps})

	vol, ok := m.TrailingVol("AAA", m.NumRows()-1, 4)
	require.True(t, ok)

	// Hand-computed sample stdev of the last four returns.
	rets, _ := ps.Returns()
	last := rets[3:]
	mean := 0.0
	for _, r := range last {
		mean += r
	}
	mean /= float64(len(last))
	ss := 0.0
	for _, r := range last {
		ss += (r - mean) * (r - mean)
	}
	want := math.Sqrt(ss / float64(len(last)-1))
	assert.InDelta(t, want, vol, 1e-12)
}

func TestTrailingVolInsufficientObservations(t *testing.T) {
	m := twoSymbolMatrix(t)
	_, ok := m.TrailingVol("BBB", m.NumRows()-1, 2)
	assert.False(t, ok, "one observed return cannot fill a window of two")

	_, ok = m.TrailingVol("ZZZ", m.NumRows()-1, 2)
	assert.False(t, ok)
}
