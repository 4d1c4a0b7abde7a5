package market

import (
	"math"
	"sort"
	"time"
)

// ReturnMatrix holds per-date simple returns for a set of symbols.
// Rows are sorted chronologically and columns follow sorted symbol
// order so the layout does not depend on map iteration. Missing values
// are filled with 0.0 and flagged in Present. The matrix is never
// mutated after construction; permutation runs build reordered copies.
type ReturnMatrix struct {
	Dates   []time.Time
	Symbols []string
	Rows    [][]float64
	Present [][]bool

	index   map[string]int
	dateIdx map[int64]int
}

// BuildReturnMatrix constructs the matrix from a symbol -> PriceSeries
// mapping. The date axis is the union of all bar timestamps.
func BuildReturnMatrix(series map[string]*PriceSeries) *ReturnMatrix {
	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	dateSet := make(map[int64]time.Time)
	for _, ps := range series {
		for _, b := range ps.Bars {
			dateSet[b.Timestamp.UnixNano()] = b.Timestamp
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for _, t := range dateSet {
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	m := &ReturnMatrix{
		Dates:   dates,
		Symbols: symbols,
		Rows:    make([][]float64, len(dates)),
		Present: make([][]bool, len(dates)),
	}
	for i := range m.Rows {
		m.Rows[i] = make([]float64, len(symbols))
		m.Present[i] = make([]bool, len(symbols))
	}
	m.buildIndexes()

	for j, sym := range symbols {
		ps := series[sym]
		rets, defined := ps.Returns()
		for i, b := range ps.Bars {
			row, ok := m.dateIdx[b.Timestamp.UnixNano()]
			if !ok || !defined[i] {
				continue
			}
			m.Rows[row][j] = rets[i]
			m.Present[row][j] = true
		}
	}
	return m
}

func (m *ReturnMatrix) buildIndexes() {
	m.index = make(map[string]int, len(m.Symbols))
	for j, sym := range m.Symbols {
		m.index[sym] = j
	}
	m.dateIdx = make(map[int64]int, len(m.Dates))
	for i, t := range m.Dates {
		m.dateIdx[t.UnixNano()] = i
	}
}

// NumRows returns the number of dates.
func (m *ReturnMatrix) NumRows() int { return len(m.Dates) }

// SymbolIndex returns the column index for a symbol.
func (m *ReturnMatrix) SymbolIndex(symbol string) (int, bool) {
	j, ok := m.index[symbol]
	return j, ok
}

// RowIndex returns the row index for an exact timestamp.
func (m *ReturnMatrix) RowIndex(t time.Time) (int, bool) {
	i, ok := m.dateIdx[t.UnixNano()]
	return i, ok
}

// At returns the return for (row, symbol) and whether it was observed.
func (m *ReturnMatrix) At(row int, symbol string) (float64, bool) {
	j, ok := m.index[symbol]
	if !ok {
		return 0, false
	}
	return m.Rows[row][j], m.Present[row][j]
}

// Slice returns the sub-matrix with start <= date < end. Rows are
// shared with the parent; callers must not mutate them.
func (m *ReturnMatrix) Slice(start, end time.Time) *ReturnMatrix {
	lo := sort.Search(len(m.Dates), func(i int) bool { return !m.Dates[i].Before(start) })
	hi := sort.Search(len(m.Dates), func(i int) bool { return !m.Dates[i].Before(end) })
	out := &ReturnMatrix{
		Dates:   m.Dates[lo:hi],
		Symbols: m.Symbols,
		Rows:    m.Rows[lo:hi],
		Present: m.Present[lo:hi],
	}
	out.buildIndexes()
	return out
}

// Permuted returns a copy with rows reordered by perm, a permutation
// of [0, NumRows). Each row moves as a whole cross-sectional vector,
// preserving same-date structure across symbols while destroying the
// temporal ordering. The date axis keeps its original order.
func (m *ReturnMatrix) Permuted(perm []int) *ReturnMatrix {
	out := &ReturnMatrix{
		Dates:   m.Dates,
		Symbols: m.Symbols,
		Rows:    make([][]float64, len(m.Rows)),
		Present: make([][]bool, len(m.Present)),
	}
	for i, src := range perm {
		out.Rows[i] = m.Rows[src]
		out.Present[i] = m.Present[src]
	}
	out.buildIndexes()
	return out
}

// TrailingVol computes the sample standard deviation of the last
// `window` observed returns for symbol at rows <= endRow. It reports
// false when fewer than `window` observations exist or the deviation
// is not positive.
func (m *ReturnMatrix) TrailingVol(symbol string, endRow, window int) (float64, bool) {
	j, ok := m.index[symbol]
	if !ok || window <= 1 {
		return 0, false
	}
	obs := make([]float64, 0, window)
	for i := endRow; i >= 0 && len(obs) < window; i-- {
		if m.Present[i][j] {
			obs = append(obs, m.Rows[i][j])
		}
	}
	if len(obs) < window {
		return 0, false
	}
	mean := 0.0
	for _, r := range obs {
		mean += r
	}
	mean /= float64(len(obs))
	ss := 0.0
	for _, r := range obs {
		d := r - mean
		ss += d * d
	}
	vol := math.Sqrt(ss / float64(len(obs)-1))
	if vol <= 0 || math.IsNaN(vol) {
		return 0, false
	}
	return vol, true
}
