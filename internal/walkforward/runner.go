package walkforward

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/async"
	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
)

// Optimizer drives walk-forward re-optimization: grid search on each
// training window, the winning parameters applied out-of-sample.
type Optimizer struct {
	Base           backtest.Params
	Grid           Grid
	Objective      string
	PeriodsPerYear float64
	TrainYears     int
	OOSMonths      int
	Pool           *async.Pool
}

// WindowResult records what one walk-forward window produced.
type WindowResult struct {
	Window     Window           `json:"window"`
	Params     backtest.Params  `json:"params"`
	TrainScore float64          `json:"train_score"`
	OOSMetrics *metrics.Record  `json:"oos_metrics,omitempty"`
}

// Result aggregates a full walk-forward run. OOSDates/OOSEquity hold
// the stitched out-of-sample curve: each window's segment normalized
// to start at 1.0, concatenated chronologically, duplicate timestamps
// resolved by keeping the first occurrence.
type Result struct {
	Windows   []Window       `json:"windows"`
	Chosen    []WindowResult `json:"chosen"`
	Skipped   int            `json:"skipped"`
	OOSDates  []time.Time    `json:"oos_dates"`
	OOSEquity []float64      `json:"oos_equity"`
}

// Run executes the walk-forward protocol over [start, end]. A window
// whose grid search finds no valid combination, or whose OOS slice is
// empty, is skipped and logged; it never aborts the run.
func (o *Optimizer) Run(ctx context.Context, sim *backtest.Simulator, start, end time.Time) (*Result, error) {
	if err := o.Grid.Validate(); err != nil {
		return nil, err
	}
	windows := Windows(start, end, o.TrainYears, o.OOSMonths)
	if len(windows) == 0 {
		return nil, fmt.Errorf("no walk-forward windows fit in %s..%s with train_years=%d oos_months=%d",
			start.Format("2006-01-02"), end.Format("2006-01-02"), o.TrainYears, o.OOSMonths)
	}
	log.Info().Int("windows", len(windows)).Msg("walk-forward windows generated")

	res := &Result{Windows: windows}
	seen := make(map[int64]bool)

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info().
			Int("window", i+1).
			Int("total", len(windows)).
			Time("train_start", w.TrainStart).
			Time("oos_start", w.OOSStart).
			Msg("optimizing window")

		search, err := o.SearchWindow(ctx, sim, w.TrainStart, w.TrainEnd)
		if err != nil {
			return nil, err
		}
		if search.Params == nil {
			log.Warn().Int("window", i+1).Msg("no valid grid result, skipping window")
			res.Skipped++
			continue
		}

		// OOS range is inclusive of its end date.
		oosRun, err := sim.Run(ctx, *search.Params, w.OOSStart, w.OOSEnd.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		if oosRun.Empty() {
			log.Warn().Int("window", i+1).Msg("empty out-of-sample slice, skipping window")
			res.Skipped++
			continue
		}

		rec := metrics.Compute(oosRun.Returns, oosRun.Equity, oosRun.Turnover, o.PeriodsPerYear)
		res.Chosen = append(res.Chosen, WindowResult{
			Window:     w,
			Params:     *search.Params,
			TrainScore: search.Score,
			OOSMetrics: &rec,
		})

		base := oosRun.Equity[0]
		if base == 0 {
			base = 1
		}
		for k, t := range oosRun.Dates {
			key := t.UnixNano()
			if seen[key] {
				continue
			}
			seen[key] = true
			res.OOSDates = append(res.OOSDates, t)
			res.OOSEquity = append(res.OOSEquity, oosRun.Equity[k]/base)
		}
	}
	return res, nil
}
