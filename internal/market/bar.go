package market

import (
	"fmt"
	"time"
)

// Bar represents one OHLCV observation for a single symbol.
// Bars are validated upstream by the data collaborator; the engine
// only reads them.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate checks the upstream data contract for a single bar.
func (b Bar) Validate() error {
	if b.High < b.Open || b.High < b.Low || b.High < b.Close {
		return fmt.Errorf("high %.6f below open/low/close", b.High)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("low %.6f above open/close", b.Low)
	}
	return nil
}

// PriceSeries is an ordered-by-time sequence of bars for one symbol
// with no duplicate timestamps.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// NewPriceSeries validates ordering and the per-bar contract.
func NewPriceSeries(symbol string, bars []Bar) (*PriceSeries, error) {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%s bar %d: %w", symbol, i, err)
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return nil, fmt.Errorf("%s bar %d: timestamp %s not after %s",
				symbol, i, b.Timestamp.Format(time.RFC3339), bars[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return &PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// Len returns the number of bars.
func (ps *PriceSeries) Len() int { return len(ps.Bars) }

// Closes returns the close column.
func (ps *PriceSeries) Closes() []float64 {
	out := make([]float64, len(ps.Bars))
	for i, b := range ps.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high column.
func (ps *PriceSeries) Highs() []float64 {
	out := make([]float64, len(ps.Bars))
	for i, b := range ps.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column.
func (ps *PriceSeries) Lows() []float64 {
	out := make([]float64, len(ps.Bars))
	for i, b := range ps.Bars {
		out[i] = b.Low
	}
	return out
}

// Returns computes simple close-to-close returns. The result has one
// entry per bar; the first entry has no prior close and is reported as
// (0, defined=false) via the companion slice.
func (ps *PriceSeries) Returns() ([]float64, []bool) {
	rets := make([]float64, len(ps.Bars))
	defined := make([]bool, len(ps.Bars))
	for i := 1; i < len(ps.Bars); i++ {
		prev := ps.Bars[i-1].Close
		if prev != 0 {
			rets[i] = ps.Bars[i].Close/prev - 1.0
			defined[i] = true
		}
	}
	return rets, defined
}

// Through returns the bars with timestamps at or before t.
func (ps *PriceSeries) Through(t time.Time) *PriceSeries {
	n := len(ps.Bars)
	for n > 0 && ps.Bars[n-1].Timestamp.After(t) {
		n--
	}
	return &PriceSeries{Symbol: ps.Symbol, Bars: ps.Bars[:n]}
}

// Slice returns bars with start <= timestamp < end.
func (ps *PriceSeries) Slice(start, end time.Time) *PriceSeries {
	lo := 0
	for lo < len(ps.Bars) && ps.Bars[lo].Timestamp.Before(start) {
		lo++
	}
	hi := lo
	for hi < len(ps.Bars) && ps.Bars[hi].Timestamp.Before(end) {
		hi++
	}
	return &PriceSeries{Symbol: ps.Symbol, Bars: ps.Bars[lo:hi]}
}
