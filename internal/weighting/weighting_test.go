package weighting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInverseVol(t *testing.T) {
	w := InverseVol(map[string]float64{"A": 0.10, "B": 0.20})
	require.Len(t, w, 2)
	assert.InDelta(t, 2.0/3.0, w["A"], 1e-12)
	assert.InDelta(t, 1.0/3.0, w["B"], 1e-12)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
}

func TestInverseVolSkipsNonPositive(t *testing.T) {
	w := InverseVol(map[string]float64{"A": 0.10, "B": 0})
	require.Len(t, w, 1)
	assert.InDelta(t, 1.0, w["A"], 1e-12)

	assert.Empty(t, InverseVol(map[string]float64{"A": 0}))
	assert.Empty(t, InverseVol(nil))
}

func TestApplyCapsRedistributes(t *testing.T) {
	// Inverse-vol of {0.1, 0.2, 0.4}: A=4/7, B=2/7, C=1/7. A breaches
	// the 0.5 cap; its excess flows to B and C pro rata.
	w := InverseVol(map[string]float64{"A": 0.1, "B": 0.2, "C": 0.4})
	capped := ApplyCaps(w, 0.5)

	assert.InDelta(t, 0.5, capped["A"], 1e-9)
	assert.InDelta(t, 1.0, capped.Sum(), 1e-9)
	assert.Greater(t, capped["B"], w["B"])
	assert.Greater(t, capped["C"], w["C"])
	for sym, weight := range capped {
		assert.LessOrEqual(t, weight, 0.5+1e-9, "symbol %s", sym)
	}
}

func TestApplyCapsNoOpBelowCap(t *testing.T) {
	w := WeightVector{"A": 0.6, "B": 0.4}
	capped := ApplyCaps(w, 0.9)
	assert.InDelta(t, 0.6, capped["A"], 1e-12)
	assert.InDelta(t, 0.4, capped["B"], 1e-12)
}

func TestApplyCashBuffer(t *testing.T) {
	w := ApplyCashBuffer(WeightVector{"A": 0.5, "B": 0.5}, 0.05)
	assert.InDelta(t, 0.475, w["A"], 1e-12)
	assert.InDelta(t, 0.95, w.Sum(), 1e-12)
}

func TestComputePipeline(t *testing.T) {
	// vols {0.10, 0.20}, cap 0.9 (not binding), buffer 5%:
	// inverse-vol 2/3 and 1/3 scaled by 0.95.
	w := Compute(map[string]float64{"A": 0.10, "B": 0.20}, Params{
		MaxWeightPerAsset: 0.9,
		CashBuffer:        0.05,
	})
	require.Len(t, w, 2)
	assert.InDelta(t, 0.6333333, w["A"], 1e-6)
	assert.InDelta(t, 0.3166667, w["B"], 1e-6)
	assert.InDelta(t, 0.95, w.Sum(), 1e-9)
}

func TestComputeSumInvariant(t *testing.T) {
	cases := []map[string]float64{
		{"A": 0.1},
		{"A": 0.1, "B": 0.1},
		{"A": 0.05, "B": 0.1, "C": 0.3, "D": 0.02},
	}
	p := Params{MaxWeightPerAsset: 0.5, CashBuffer: 0.05}
	for _, vols := range cases {
		w := Compute(vols, p)
		assert.InDelta(t, 0.95, w.Sum(), SumTolerance)
		for sym, weight := range w {
			assert.GreaterOrEqual(t, weight, 0.0, "symbol %s", sym)
		}
	}
}

func TestComputeEmptyMeansCash(t *testing.T) {
	w := Compute(nil, Params{MaxWeightPerAsset: 0.5, CashBuffer: 0.05})
	assert.Empty(t, w)
	assert.Equal(t, 0.0, w.Sum())
}
