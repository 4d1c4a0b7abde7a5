package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratrun/stratrun/internal/artifacts"
	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
)

func newBacktestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Run a single backtest with the configured parameters",
		Long:  "Simulates the configured strategy once over the campaign range and writes metrics, equity curve, and report artifacts.",
		RunE:  runBacktest,
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	c, err := loadCampaign(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	p := c.settings.Params()
	log.Info().
		Int("ema_fast", p.EMAFast).
		Int("ema_slow", p.EMASlow).
		Int("top_n", p.TopN).
		Float64("corr_cap", p.CorrCap).
		Msg("starting backtest")

	sim := backtest.New(c.series)
	// End date is inclusive on the CLI.
	res, err := sim.Run(ctx, p, c.start, c.end.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	if res.Empty() {
		return fmt.Errorf("backtest produced no bars in %s..%s",
			c.start.Format("2006-01-02"), c.end.Format("2006-01-02"))
	}

	rec := metrics.Compute(res.Returns, res.Equity, res.Turnover, c.settings.Backtest.PeriodsPerYear)
	fmt.Printf("CAGR %.2f%%  Sharpe %.2f  Calmar %.2f  MaxDD %.2f%%  PF %.2f  Turnover %.2f\n",
		rec.CAGR*100, rec.Sharpe, rec.Calmar, rec.MaxDD*100, rec.ProfitFactor, rec.Turnover)

	writer := artifacts.NewWriter(c.output)
	if err := writer.WriteBacktest(p, res, rec); err != nil {
		return err
	}
	log.Info().Str("dir", writer.OutputDir()).Msg("artifacts written")

	return persistBacktest(ctx, c, p, rec)
}
