// Package correlation computes trailing pairwise correlation matrices
// over a return matrix window.
package correlation

import (
	"math"

	"github.com/stratrun/stratrun/internal/market"
)

// Matrix is a symmetric correlation matrix with 1.0 on the diagonal.
// A nil Matrix signals insufficient history for the requested window.
type Matrix struct {
	symbols []string
	index   map[string]int
	values  [][]float64
}

// Compute builds the correlation matrix over the last `window` rows of
// m ending at endRow (inclusive). It returns nil when fewer than
// `window` rows are available, which the selector treats as the
// single-top-symbol fallback.
func Compute(m *market.ReturnMatrix, endRow, window int) *Matrix {
	if m == nil || window <= 0 || endRow < 0 {
		return nil
	}
	if endRow+1 < window {
		return nil
	}
	lo := endRow - window + 1

	c := &Matrix{
		symbols: m.Symbols,
		index:   make(map[string]int, len(m.Symbols)),
		values:  make([][]float64, len(m.Symbols)),
	}
	for j, sym := range m.Symbols {
		c.index[sym] = j
		c.values[j] = make([]float64, len(m.Symbols))
		c.values[j][j] = 1.0
	}

	for a := 0; a < len(m.Symbols); a++ {
		for b := a + 1; b < len(m.Symbols); b++ {
			r := pearson(m, lo, endRow, a, b)
			c.values[a][b] = r
			c.values[b][a] = r
		}
	}
	return c
}

// pearson correlates two columns over [lo, hi] using pairwise-complete
// observations only. Degenerate pairs (fewer than two shared rows or a
// zero-variance column) correlate at 0.
func pearson(m *market.ReturnMatrix, lo, hi, a, b int) float64 {
	var xs, ys []float64
	for i := lo; i <= hi; i++ {
		if m.Present[i][a] && m.Present[i][b] {
			xs = append(xs, m.Rows[i][a])
			ys = append(ys, m.Rows[i][b])
		}
	}
	n := len(xs)
	if n < 2 {
		return 0
	}
	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	r := cov / math.Sqrt(varX*varY)
	// Clamp rounding spill outside [-1, 1].
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// At returns the correlation between two symbols. Symbols absent from
// the matrix correlate at 0, mirroring the admit-on-unknown behavior
// of the selector.
func (c *Matrix) At(a, b string) float64 {
	if c == nil {
		return 0
	}
	i, okA := c.index[a]
	j, okB := c.index[b]
	if !okA || !okB {
		return 0
	}
	return c.values[i][j]
}

// Symbols returns the symbol axis.
func (c *Matrix) Symbols() []string {
	if c == nil {
		return nil
	}
	return c.symbols
}
