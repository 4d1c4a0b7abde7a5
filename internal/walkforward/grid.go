package walkforward

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/async"
	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
)

// Grid enumerates the hyperparameter ranges searched per training
// window. Combinations with ema_fast >= ema_slow are skipped at
// generation time.
type Grid struct {
	EMAFast []int     `yaml:"ema_fast" json:"ema_fast"`
	EMASlow []int     `yaml:"ema_slow" json:"ema_slow"`
	TopN    []int     `yaml:"top_n" json:"top_n"`
	CorrCap []float64 `yaml:"corr_cap" json:"corr_cap"`
}

// DefaultGrid mirrors the stock reoptimization ranges.
func DefaultGrid() Grid {
	return Grid{
		EMAFast: []int{10, 20, 30},
		EMASlow: []int{40, 50, 80},
		TopN:    []int{1, 2, 3},
		CorrCap: []float64{0.6, 0.7, 0.8},
	}
}

// Validate rejects empty or degenerate grids before a campaign starts.
func (g Grid) Validate() error {
	if len(g.EMAFast) == 0 || len(g.EMASlow) == 0 || len(g.TopN) == 0 || len(g.CorrCap) == 0 {
		return fmt.Errorf("grid axes must all be non-empty")
	}
	for _, v := range append(append([]int{}, g.EMAFast...), g.EMASlow...) {
		if v <= 0 {
			return fmt.Errorf("grid ema windows must be positive, got %d", v)
		}
	}
	for _, n := range g.TopN {
		if n <= 0 {
			return fmt.Errorf("grid top_n values must be positive, got %d", n)
		}
	}
	for _, c := range g.CorrCap {
		if c <= 0 || c > 1 {
			return fmt.Errorf("grid corr_cap values must be in (0, 1], got %.3f", c)
		}
	}
	if len(g.Combos(backtest.DefaultParams())) == 0 {
		return fmt.Errorf("grid yields no combination with ema_fast < ema_slow")
	}
	return nil
}

// Combos expands the grid into concrete parameter sets layered over a
// base. Iteration order is fixed (fast, slow, top_n, corr_cap), which
// is what makes first-seen tie-breaking deterministic.
func (g Grid) Combos(base backtest.Params) []backtest.Params {
	var combos []backtest.Params
	for _, fast := range g.EMAFast {
		for _, slow := range g.EMASlow {
			if fast >= slow {
				continue
			}
			for _, topN := range g.TopN {
				for _, corrCap := range g.CorrCap {
					p := base
					p.EMAFast = fast
					p.EMASlow = slow
					p.TopN = topN
					p.CorrCap = corrCap
					combos = append(combos, p)
				}
			}
		}
	}
	return combos
}

// SearchResult is the outcome of one grid search. Params is nil when
// no combination produced a valid simulation.
type SearchResult struct {
	Params *backtest.Params `json:"params"`
	Score  float64          `json:"score"`
	Cells  int              `json:"cells"`
	Valid  int              `json:"valid"`
}

// SearchWindow exhaustively evaluates the grid against sim on
// [start, end) and returns the combination maximizing the objective
// metric. Cells are independent units dispatched to the pool; a
// failing cell is logged and excluded. Ties keep the first combination
// in grid order.
func (o *Optimizer) SearchWindow(ctx context.Context, sim *backtest.Simulator, start, end time.Time) (SearchResult, error) {
	combos := o.Grid.Combos(o.Base)
	result := SearchResult{Score: math.Inf(-1), Cells: len(combos)}
	if len(combos) == 0 {
		return result, fmt.Errorf("empty parameter grid")
	}

	scores := make([]float64, len(combos))
	valid := make([]bool, len(combos))

	errs := o.pool().ForEach(ctx, len(combos), func(ctx context.Context, i int) error {
		res, err := sim.Run(ctx, combos[i], start, end)
		if err != nil {
			return err
		}
		if res.Empty() {
			return nil
		}
		rec := metrics.Compute(res.Returns, res.Equity, res.Turnover, o.PeriodsPerYear)
		obj, err := rec.Objective(o.Objective)
		if err != nil {
			return err
		}
		if math.IsNaN(obj) {
			return nil
		}
		scores[i] = obj
		valid[i] = true
		return nil
	})
	if err := ctx.Err(); err != nil {
		return result, err
	}

	for i := range combos {
		if errs[i] != nil {
			log.Warn().
				Err(errs[i]).
				Int("ema_fast", combos[i].EMAFast).
				Int("ema_slow", combos[i].EMASlow).
				Int("top_n", combos[i].TopN).
				Float64("corr_cap", combos[i].CorrCap).
				Msg("grid cell failed, excluding")
			continue
		}
		if !valid[i] {
			continue
		}
		result.Valid++
		if scores[i] > result.Score {
			result.Score = scores[i]
			p := combos[i]
			result.Params = &p
		}
	}
	return result, nil
}

func (o *Optimizer) pool() *async.Pool {
	if o.Pool == nil {
		o.Pool = async.NewPool(0)
	}
	return o.Pool
}
