// Package permutation implements Monte Carlo significance testing: the
// walk-forward grid search's best score on real data is compared
// against a null distribution built from joint row shuffles of the
// return matrix.
package permutation

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/async"
	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/market"
	"github.com/stratrun/stratrun/internal/walkforward"
)

// Tester runs the permutation campaign for one training window.
type Tester struct {
	Optimizer *walkforward.Optimizer
	Runs      int
	Seed      int64
	Pool      *async.Pool
}

// Result holds the outcome of one permutation test. PValue is nil
// when the test is inconclusive: either the real grid search found no
// valid parameters or zero permutation runs produced a valid score.
type Result struct {
	RealScore  *float64         `json:"real_score,omitempty"`
	RealParams *backtest.Params `json:"real_params,omitempty"`
	PermScores []float64        `json:"perm_scores"`
	PValue     *float64         `json:"p_value,omitempty"`
	Runs       int              `json:"runs"`
	ValidRuns  int              `json:"valid_runs"`
}

// Shuffle returns a permuted copy of the matrix: row order shuffled as
// whole cross-sectional vectors. Each row keeps its same-date
// correlation structure across symbols; the temporal ordering the
// strategy exploits is destroyed.
func Shuffle(m *market.ReturnMatrix, rng *rand.Rand) *market.ReturnMatrix {
	return m.Permuted(rng.Perm(m.NumRows()))
}

// Test runs the grid search once on the real training slice and then
// Runs more times on permuted copies. Run i is seeded Seed+i with its
// own generator, so results are reproducible and independent of
// scheduling. Failed or cancelled runs are excluded from the p-value
// denominator.
func (t *Tester) Test(ctx context.Context, series map[string]*market.PriceSeries, trainStart, trainEnd time.Time) (*Result, error) {
	res := &Result{Runs: t.Runs}

	sim := backtest.New(series)
	real, err := t.Optimizer.SearchWindow(ctx, sim, trainStart, trainEnd)
	if err != nil {
		return nil, err
	}
	if real.Params == nil {
		log.Warn().Msg("no valid parameters on real data, permutation test inconclusive")
		return res, nil
	}
	res.RealScore = &real.Score
	res.RealParams = real.Params
	log.Info().Float64("real_score", real.Score).Int("runs", t.Runs).Msg("starting permutation runs")

	// Permute only the rows inside the training window so every run
	// sees the same timeline as the real search.
	trainMatrix := sim.Returns().Slice(trainStart, trainEnd)

	scores := make([]float64, t.Runs)
	valid := make([]bool, t.Runs)

	pool := t.Pool
	if pool == nil {
		pool = async.NewPool(0)
	}
	errs := pool.ForEach(ctx, t.Runs, func(ctx context.Context, i int) error {
		rng := rand.New(rand.NewSource(t.Seed + int64(i)))
		permSim := backtest.NewWithReturns(series, Shuffle(trainMatrix, rng))

		search, err := t.Optimizer.SearchWindow(ctx, permSim, trainStart, trainEnd)
		if err != nil {
			return err
		}
		if search.Params == nil {
			return nil
		}
		scores[i] = search.Score
		valid[i] = true
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := 0; i < t.Runs; i++ {
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Int("run", i).Msg("permutation run failed, excluding")
			continue
		}
		if !valid[i] {
			continue
		}
		res.PermScores = append(res.PermScores, scores[i])
	}
	res.ValidRuns = len(res.PermScores)
	if res.ValidRuns == 0 {
		log.Warn().Msg("no valid permutation runs, p-value inconclusive")
		return res, nil
	}

	atLeast := 0
	for _, s := range res.PermScores {
		if s >= real.Score {
			atLeast++
		}
	}
	p := float64(atLeast) / float64(res.ValidRuns)
	res.PValue = &p
	log.Info().Float64("p_value", p).Int("valid_runs", res.ValidRuns).Msg("permutation test complete")
	return res, nil
}

// WindowResult couples a permutation result with its training window.
type WindowResult struct {
	Window walkforward.Window `json:"window"`
	Result *Result            `json:"result"`
}

// TestWindows runs the permutation test across every walk-forward
// training window, seeding window i with Seed+i as its base.
func (t *Tester) TestWindows(ctx context.Context, series map[string]*market.PriceSeries, start, end time.Time) ([]WindowResult, error) {
	windows := walkforward.Windows(start, end, t.Optimizer.TrainYears, t.Optimizer.OOSMonths)
	out := make([]WindowResult, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info().Int("window", i+1).Int("total", len(windows)).Msg("permutation test window")
		wt := &Tester{Optimizer: t.Optimizer, Runs: t.Runs, Seed: t.Seed + int64(i), Pool: t.Pool}
		res, err := wt.Test(ctx, series, w.TrainStart, w.TrainEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, WindowResult{Window: w, Result: res})
	}
	return out, nil
}
