// Package backtest simulates the selection/weighting strategy along a
// timeline with a strict one-bar lag between deciding a position and
// realizing its return.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/correlation"
	"github.com/stratrun/stratrun/internal/indicators"
	"github.com/stratrun/stratrun/internal/market"
	"github.com/stratrun/stratrun/internal/selection"
	"github.com/stratrun/stratrun/internal/signal"
	"github.com/stratrun/stratrun/internal/weighting"
)

// Simulator runs backtests over an immutable universe of price series
// and a return matrix. The matrix is swappable so the permutation
// tester can drive the identical pipeline with shuffled returns.
type Simulator struct {
	series  map[string]*market.PriceSeries
	returns *market.ReturnMatrix
}

// New builds a simulator and derives the return matrix from the series.
func New(series map[string]*market.PriceSeries) *Simulator {
	return &Simulator{series: series, returns: market.BuildReturnMatrix(series)}
}

// NewWithReturns builds a simulator with an externally supplied return
// matrix (typically a permuted copy).
func NewWithReturns(series map[string]*market.PriceSeries, returns *market.ReturnMatrix) *Simulator {
	return &Simulator{series: series, returns: returns}
}

// Returns exposes the simulator's return matrix.
func (s *Simulator) Returns() *market.ReturnMatrix { return s.returns }

// Result is the full output of one simulation. All slices are aligned
// with Dates.
type Result struct {
	Dates    []time.Time
	Returns  []float64
	Equity   []float64
	Turnover []float64
	Costs    []float64
	Weights  []weighting.WeightVector
}

// Empty reports whether the run covered no dates.
func (r *Result) Empty() bool { return len(r.Dates) == 0 }

// symbolState holds the per-symbol indicator series for one parameter
// set, precomputed in a single pass. Each value at bar i depends only
// on bars <= i, which is what keeps the simulation free of look-ahead.
type symbolState struct {
	bars    []market.Bar
	emaFast []float64
	emaSlow []float64
	atr     []float64
	macd    []float64
	dateIdx map[int64]int
}

func (s *Simulator) prepare(p Params, start, end time.Time) (map[string]*symbolState, error) {
	states := make(map[string]*symbolState, len(s.series))
	for sym, ps := range s.series {
		sliced := ps.Slice(start, end)
		if sliced.Len() == 0 {
			continue
		}
		closes := sliced.Closes()

		emaFast, err := indicators.EMA(closes, p.EMAFast)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}
		emaSlow, err := indicators.EMA(closes, p.EMASlow)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}
		atr, err := indicators.ATR(sliced.Highs(), sliced.Lows(), closes, p.ATRWindow)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}

		st := &symbolState{
			bars:    sliced.Bars,
			emaFast: emaFast,
			emaSlow: emaSlow,
			atr:     atr,
			dateIdx: make(map[int64]int, sliced.Len()),
		}
		if p.MACD.Enabled {
			macd, err := indicators.MACD(closes, p.MACD.Fast, p.MACD.Slow, p.MACD.Signal)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sym, err)
			}
			st.macd = macd.Line
		}
		for i, b := range sliced.Bars {
			st.dateIdx[b.Timestamp.UnixNano()] = i
		}
		states[sym] = st
	}
	return states, nil
}

// Run simulates the strategy over dates in [start, end). On each date
// t it computes gates, scores, selection, and weights from data at or
// before t; the resulting weight vector is realized against the return
// at t+1 only. Turnover and costs are charged on the date the weights
// change. Equity starts at 1.0.
func (s *Simulator) Run(ctx context.Context, p Params, start, end time.Time) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	states, err := s.prepare(p, start, end)
	if err != nil {
		return nil, err
	}
	window := s.returns.Slice(start, end)
	n := window.NumRows()

	res := &Result{
		Dates:    window.Dates,
		Returns:  make([]float64, n),
		Equity:   make([]float64, n),
		Turnover: make([]float64, n),
		Costs:    make([]float64, n),
		Weights:  make([]weighting.WeightVector, n),
	}

	warmup := p.warmup()
	costRate := p.CommissionRate + p.SlippageBps/10000.0
	prevWeights := weighting.WeightVector{}
	equity := 1.0

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := window.Dates[i]

		weights := s.evaluate(p, states, window, i, t, warmup)
		res.Weights[i] = weights

		turnover := 0.0
		for sym := range weights {
			turnover += math.Abs(weights[sym] - prevWeights[sym])
		}
		for sym, w := range prevWeights {
			if _, held := weights[sym]; !held {
				turnover += math.Abs(w)
			}
		}
		cost := turnover * costRate

		// Realize the lagged position: weights decided at t-1 against
		// the return at t.
		gross := 0.0
		for sym, w := range prevWeights {
			if r, ok := window.At(i, sym); ok {
				gross += w * r
			}
		}
		net := gross - cost

		equity *= 1.0 + net
		res.Returns[i] = net
		res.Turnover[i] = turnover
		res.Costs[i] = cost
		res.Equity[i] = equity

		prevWeights = weights
	}
	return res, nil
}

// evaluate runs gate -> score -> selection -> weighting for one date.
// An empty vector means hold cash.
func (s *Simulator) evaluate(p Params, states map[string]*symbolState, window *market.ReturnMatrix, row int, t time.Time, warmup int) weighting.WeightVector {
	scores := make(map[string]float64)
	for sym, st := range states {
		bi, ok := st.dateIdx[t.UnixNano()]
		if !ok {
			continue // no price on this date; excluded, not fatal
		}
		if bi+1 < warmup {
			continue // still warming up
		}
		macdLine := 0.0
		if p.MACD.Enabled {
			macdLine = st.macd[bi]
		}
		if !signal.LongOK(st.emaFast[bi], st.emaSlow[bi], macdLine, p.MACD.Enabled) {
			continue
		}
		score := signal.Score(st.bars[bi].Close, st.emaFast[bi], st.atr[bi])
		if score < p.MinScore {
			continue
		}
		scores[sym] = score
	}
	if len(scores) == 0 {
		return weighting.WeightVector{}
	}

	corr := correlation.Compute(window, row, p.CorrWindow)
	selected := selection.Select(scores, corr, p.TopN, p.CorrCap)
	if len(selected) == 0 {
		return weighting.WeightVector{}
	}

	vols := make(map[string]float64, len(selected))
	for _, sym := range selected {
		vol, ok := window.TrailingVol(sym, row, p.VolWindow)
		if !ok {
			log.Debug().Str("symbol", sym).Time("date", t).Msg("insufficient history for volatility, excluding")
			continue
		}
		vols[sym] = vol
	}
	return weighting.Compute(vols, weighting.Params{
		MaxWeightPerAsset: p.MaxWeightPerAsset,
		CashBuffer:        p.CashBuffer,
	})
}
