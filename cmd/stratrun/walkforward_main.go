package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratrun/stratrun/internal/artifacts"
	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
)

func newWalkforwardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "walkforward",
		Aliases: []string{"wf"},
		Short:   "Run walk-forward re-optimization over the campaign range",
		Long:    "Grid-searches each training window, applies the winning parameters out of sample, and stitches the OOS equity curve.",
		RunE:    runWalkforward,
	}
}

func runWalkforward(cmd *cobra.Command, args []string) error {
	c, err := loadCampaign(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	opt := c.optimizer()

	log.Info().
		Int("train_years", opt.TrainYears).
		Int("oos_months", opt.OOSMonths).
		Str("objective", opt.Objective).
		Msg("starting walk-forward campaign")

	sim := backtest.New(c.series)
	res, err := opt.Run(ctx, sim, c.start, c.end)
	if err != nil {
		return fmt.Errorf("walk-forward failed: %w", err)
	}
	if len(res.OOSEquity) == 0 {
		return fmt.Errorf("walk-forward produced no out-of-sample bars")
	}

	oosReturns := make([]float64, 0, len(res.OOSEquity))
	for i := 1; i < len(res.OOSEquity); i++ {
		if res.OOSEquity[i-1] != 0 {
			oosReturns = append(oosReturns, res.OOSEquity[i]/res.OOSEquity[i-1]-1)
		}
	}
	rec := metrics.Compute(oosReturns, res.OOSEquity, nil, c.settings.Backtest.PeriodsPerYear)
	fmt.Printf("OOS: CAGR %.2f%%  Sharpe %.2f  Calmar %.2f  MaxDD %.2f%%  (%d windows, %d skipped)\n",
		rec.CAGR*100, rec.Sharpe, rec.Calmar, rec.MaxDD*100, len(res.Chosen), res.Skipped)

	writer := artifacts.NewWriter(c.output)
	if err := writer.WriteWalkforward(opt.Objective, res, rec); err != nil {
		return err
	}
	log.Info().Str("dir", writer.OutputDir()).Msg("artifacts written")

	return persistWalkforward(ctx, c, res)
}
