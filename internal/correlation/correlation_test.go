package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratrun/stratrun/internal/market"
)

// seriesFromReturns builds a price series whose simple returns follow
// the given pattern, starting at 100.
func seriesFromReturns(t *testing.T, symbol string, start time.Time, rets []float64) *market.PriceSeries {
	t.Helper()
	price := 100.0
	bars := make([]market.Bar, 0, len(rets)+1)
	bars = append(bars, market.Bar{Timestamp: start, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1000})
	for i, r := range rets {
		price *= 1 + r
		bars = append(bars, market.Bar{
			Timestamp: start.AddDate(0, 0, i+1),
			Open:      price, High: price + 1, Low: price - 1, Close: price,
			Volume: 1000,
		})
	}
	ps, err := market.NewPriceSeries(symbol, bars)
	require.NoError(t, err)
	return ps
}

func testMatrix(t *testing.T) *market.ReturnMatrix {
	t.Helper()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	up, dn := 0.01, -0.01
	return market.BuildReturnMatrix(map[string]*market.PriceSeries{
		// B is A with the first return flipped: corr ~ 0.775.
		// C alternates on a different period: corr with A is ~ 0.
		"A": seriesFromReturns(t, "A", start, []float64{up, dn, up, dn, up, dn, up, dn}),
		"B": seriesFromReturns(t, "B", start, []float64{dn, dn, up, dn, up, dn, up, dn}),
		"C": seriesFromReturns(t, "C", start, []float64{up, up, dn, dn, up, up, dn, dn}),
	})
}

func TestComputePairwiseCorrelations(t *testing.T) {
	m := testMatrix(t)
	c := Compute(m, m.NumRows()-1, 8)
	require.NotNil(t, c)

	assert.InDelta(t, 1.0, c.At("A", "A"), 1e-12)
	assert.InDelta(t, c.At("A", "B"), c.At("B", "A"), 1e-12, "matrix is symmetric")
	assert.InDelta(t, 0.7746, c.At("A", "B"), 1e-3)
	assert.InDelta(t, 0.0, c.At("A", "C"), 0.05)
}

func TestComputeBounds(t *testing.T) {
	m := testMatrix(t)
	c := Compute(m, m.NumRows()-1, 8)
	require.NotNil(t, c)
	for _, a := range c.Symbols() {
		for _, b := range c.Symbols() {
			r := c.At(a, b)
			assert.GreaterOrEqual(t, r, -1.0)
			assert.LessOrEqual(t, r, 1.0)
		}
	}
}

func TestComputeInsufficientHistory(t *testing.T) {
	m := testMatrix(t)
	assert.Nil(t, Compute(m, 3, 8), "fewer rows than the window yields no matrix")
	assert.Nil(t, Compute(m, m.NumRows()-1, m.NumRows()+1))
}

func TestAtUnknownSymbol(t *testing.T) {
	m := testMatrix(t)
	c := Compute(m, m.NumRows()-1, 8)
	require.NotNil(t, c)
	assert.Equal(t, 0.0, c.At("A", "ZZZ"))

	var nilMatrix *Matrix
	assert.Equal(t, 0.0, nilMatrix.At("A", "B"))
}
