package indicators

import (
	"fmt"
	"math"
)

// EMA calculates the exponential moving average with the standard
// recursion ema[i] = alpha*x[i] + (1-alpha)*ema[i-1], alpha = 2/(window+1),
// seeded with the first observation. Single pass, O(n).
func EMA(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("ema window must be positive, got %d", window)
	}
	if len(series) == 0 {
		return nil, nil
	}

	alpha := 2.0 / (float64(window) + 1.0)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// ATR calculates the Average True Range using Wilder's smoothing.
//
//	TR[i]  = max(high-low, |high-prevClose|, |low-prevClose|)
//	ATR[i] = (ATR[i-1]*(window-1) + TR[i]) / window, ATR[0] = TR[0]
//
// The first true range uses the first close as the previous close, so
// TR[0] degenerates to high[0]-low[0] when the close sits inside the bar.
func ATR(high, low, close []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("atr window must be positive, got %d", window)
	}
	n := len(close)
	if n == 0 || len(high) != n || len(low) != n {
		if n == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("atr input lengths differ: high=%d low=%d close=%d", len(high), len(low), n)
	}

	out := make([]float64, n)
	prevClose := close[0]
	for i := 0; i < n; i++ {
		tr := math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-prevClose), math.Abs(low[i]-prevClose)))
		if i == 0 {
			out[i] = tr
		} else {
			out[i] = (out[i-1]*float64(window-1) + tr) / float64(window)
		}
		prevClose = close[i]
	}
	return out, nil
}

// Stdev calculates the trailing sample standard deviation (ddof=1)
// over at most `window` observations. With fewer than two observations
// available the value is 0 (min_periods=1 semantics).
func Stdev(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("stdev window must be positive, got %d", window)
	}
	if len(series) == 0 {
		return nil, nil
	}

	out := make([]float64, len(series))
	for i := range series {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		n := i - lo + 1
		if n < 2 {
			continue
		}
		mean := 0.0
		for k := lo; k <= i; k++ {
			mean += series[k]
		}
		mean /= float64(n)
		ss := 0.0
		for k := lo; k <= i; k++ {
			d := series[k] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out, nil
}

// MACDResult bundles the three MACD series.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates Moving Average Convergence Divergence:
// line = EMA(close,fast) - EMA(close,slow), signal = EMA(line,signal),
// histogram = line - signal. Fast must be strictly below slow.
func MACD(close []float64, fast, slow, signal int) (*MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("macd periods must be positive: fast=%d slow=%d signal=%d", fast, slow, signal)
	}
	if fast >= slow {
		return nil, fmt.Errorf("macd fast period (%d) must be less than slow period (%d)", fast, slow)
	}
	if len(close) == 0 {
		return &MACDResult{}, nil
	}

	emaFast, err := EMA(close, fast)
	if err != nil {
		return nil, err
	}
	emaSlow, err := EMA(close, slow)
	if err != nil {
		return nil, err
	}

	line := make([]float64, len(close))
	for i := range close {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig, err := EMA(line, signal)
	if err != nil {
		return nil, err
	}
	hist := make([]float64, len(close))
	for i := range close {
		hist[i] = line[i] - sig[i]
	}
	return &MACDResult{Line: line, Signal: sig, Histogram: hist}, nil
}
