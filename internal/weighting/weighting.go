// Package weighting allocates portfolio weights to a selected basket
// using inverse volatility, per-asset caps, and a cash buffer.
package weighting

import (
	"math"

	"github.com/rs/zerolog/log"
)

// SumTolerance is the allowed deviation of the final weight sum from
// (1 - cash_buffer) before a proportional rescale kicks in.
const SumTolerance = 0.01

// WeightVector maps symbols to portfolio weights. An empty vector
// means 100% cash.
type WeightVector map[string]float64

// Sum returns the total allocated weight.
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Params controls the weighting stages.
type Params struct {
	MaxWeightPerAsset float64
	CashBuffer        float64
}

// InverseVol converts per-symbol volatilities into normalized inverse-
// volatility weights. Symbols with non-positive volatility are assumed
// to have been excluded by the caller.
func InverseVol(vols map[string]float64) WeightVector {
	if len(vols) == 0 {
		return WeightVector{}
	}
	total := 0.0
	inv := make(map[string]float64, len(vols))
	for sym, vol := range vols {
		if vol <= 0 {
			continue
		}
		inv[sym] = 1.0 / vol
		total += inv[sym]
	}
	if total == 0 {
		return WeightVector{}
	}
	w := make(WeightVector, len(inv))
	for sym, iv := range inv {
		w[sym] = iv / total
	}
	return w
}

// ApplyCaps clips weights above maxWeight and redistributes the excess
// proportionally across the symbols still below cap, in a single pass.
// When many assets sit near the cap the redistribution itself can push
// a weight back above it; the closing renormalization keeps the sum
// invariant regardless.
func ApplyCaps(w WeightVector, maxWeight float64) WeightVector {
	if len(w) == 0 {
		return WeightVector{}
	}
	capped := make(WeightVector, len(w))
	excess := 0.0
	for sym, weight := range w {
		if weight > maxWeight {
			excess += weight - maxWeight
			capped[sym] = maxWeight
		} else {
			capped[sym] = weight
		}
	}

	if excess > 0 {
		totalUncapped := 0.0
		for _, weight := range capped {
			if weight < maxWeight {
				totalUncapped += weight
			}
		}
		if totalUncapped > 0 {
			for sym, weight := range capped {
				if weight < maxWeight {
					capped[sym] += excess * (weight / totalUncapped)
				}
			}
		}
	}

	total := capped.Sum()
	if total > 0 {
		for sym := range capped {
			capped[sym] /= total
		}
	}
	return capped
}

// ApplyCashBuffer scales all weights down by (1 - cashBuffer).
func ApplyCashBuffer(w WeightVector, cashBuffer float64) WeightVector {
	scaled := make(WeightVector, len(w))
	factor := 1.0 - cashBuffer
	for sym, weight := range w {
		scaled[sym] = weight * factor
	}
	return scaled
}

// Compute runs the full weighting pipeline over per-symbol trailing
// volatilities: inverse-vol, caps with single-pass redistribution,
// cash buffer, and a final renormalization when the sum drifts beyond
// SumTolerance from (1 - cash_buffer). An empty result means no symbol
// survived the volatility stage and the portfolio holds cash.
func Compute(vols map[string]float64, p Params) WeightVector {
	w := InverseVol(vols)
	if len(w) == 0 {
		return w
	}
	w = ApplyCaps(w, p.MaxWeightPerAsset)
	w = ApplyCashBuffer(w, p.CashBuffer)

	expected := 1.0 - p.CashBuffer
	total := w.Sum()
	if math.Abs(total-expected) > SumTolerance && total > 0 {
		log.Warn().
			Float64("sum", total).
			Float64("expected", expected).
			Msg("weight sum outside tolerance, renormalizing")
		for sym := range w {
			w[sym] = w[sym] / total * expected
		}
	}
	return w
}
