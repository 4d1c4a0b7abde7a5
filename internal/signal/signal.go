// Package signal converts prices and indicators into per-symbol
// momentum scores and trend gates.
package signal

import "math"

// Eps floors the volatility denominator so near-zero-volatility regimes
// do not blow the score up.
const Eps = 1e-6

// Score computes the momentum/volatility score for one observation:
//
//	score = ((close / emaFast) - 1) / max(atr/close, Eps)
func Score(close, emaFast, atr float64) float64 {
	if close == 0 || emaFast == 0 {
		return 0
	}
	atrPct := atr / close
	return (close/emaFast - 1.0) / math.Max(atrPct, Eps)
}

// ScoreSeries computes Score elementwise over aligned series.
func ScoreSeries(close, emaFast, atr []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		out[i] = Score(close[i], emaFast[i], atr[i])
	}
	return out
}

// LongOK reports whether the trend gate admits a long position:
// emaFast > emaSlow, and macd line > 0 when the MACD gate is enabled.
func LongOK(emaFast, emaSlow, macdLine float64, macdEnabled bool) bool {
	if emaFast <= emaSlow {
		return false
	}
	if macdEnabled && macdLine <= 0 {
		return false
	}
	return true
}

// ShouldExit reports the exit condition for a held position:
// close below the fast EMA.
func ShouldExit(close, emaFast float64) bool {
	return close < emaFast
}
