package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCAGR(t *testing.T) {
	// Doubling over exactly one year of periods.
	equity := make([]float64, 253)
	for i := range equity {
		equity[i] = 1 + float64(i)/252.0
	}
	got := CAGR(equity, 252)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCAGRDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, CAGR(nil, 252))
	assert.Equal(t, 0.0, CAGR([]float64{1.0}, 252))
	assert.Equal(t, 0.0, CAGR([]float64{0, 1}, 252))
	assert.Equal(t, -1.0, CAGR([]float64{1, -0.5}, 252), "non-positive terminal equity is a total loss")
}

func TestCAGRFlatEquity(t *testing.T) {
	assert.Equal(t, 0.0, CAGR([]float64{1, 1, 1, 1}, 252))
}

func TestSharpeZeroVariance(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01, 0.01}, 0, 252))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01}, 0, 252))
}

func TestSharpeSign(t *testing.T) {
	assert.Positive(t, Sharpe([]float64{0.01, 0.02, 0.01, 0.03}, 0, 252))
	assert.Negative(t, Sharpe([]float64{-0.01, -0.02, -0.01, -0.03}, 0, 252))
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 2.0, trough 1.0: 50% drawdown, reported negative.
	got := MaxDrawdown([]float64{1.0, 2.0, 1.0, 1.5})
	assert.InDelta(t, -0.5, got, 1e-12)
}

func TestMaxDrawdownMonotoneRise(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1.0, 1.1, 1.2, 1.3}))
}

func TestCalmar(t *testing.T) {
	assert.InDelta(t, 0.5, Calmar(0.1, -0.2), 1e-12)
	assert.Equal(t, 0.0, Calmar(0.1, 0), "no drawdown yields zero, not infinity")
}

func TestProfitFactor(t *testing.T) {
	assert.InDelta(t, 2.0, ProfitFactor([]float64{0.02, -0.01, 0.02, -0.01}), 1e-12)
	assert.True(t, math.IsInf(ProfitFactor([]float64{0.01, 0.02}), 1))
	assert.Equal(t, 0.0, ProfitFactor([]float64{0, 0}))
	assert.Equal(t, 0.0, ProfitFactor(nil))
}

func TestAnnualizedTurnover(t *testing.T) {
	got := AnnualizedTurnover([]float64{0.1, 0.2, 0.3}, 252)
	assert.InDelta(t, 0.2*252, got, 1e-9)
	assert.Equal(t, 0.0, AnnualizedTurnover(nil, 252))
}

func TestComputeBundlesAll(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02}
	equity := []float64{1.0, 1.01, 1.00495, 1.0250490}
	rec := Compute(returns, equity, []float64{0.5, 0, 0}, 252)

	assert.InDelta(t, CAGR(equity, 252), rec.CAGR, 1e-12)
	assert.InDelta(t, MaxDrawdown(equity), rec.MaxDD, 1e-12)
	assert.InDelta(t, Calmar(rec.CAGR, rec.MaxDD), rec.Calmar, 1e-12)
}

func TestObjective(t *testing.T) {
	rec := Record{CAGR: 0.1, Sharpe: 1.2, Calmar: 0.8, MaxDD: -0.15, ProfitFactor: 1.6, Turnover: 3.2}

	for name, want := range map[string]float64{
		"Calmar":   0.8,
		"calmar":   0.8,
		"CAGR":     0.1,
		"Sharpe":   1.2,
		"PF":       1.6,
		"MaxDD":    -0.15,
		"Turnover": 3.2,
	} {
		got, err := rec.Objective(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := rec.Objective("Sortino")
	assert.Error(t, err)
}
