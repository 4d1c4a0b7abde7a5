package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratrun/stratrun/internal/artifacts"
	"github.com/stratrun/stratrun/internal/permutation"
)

func newPermuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permute",
		Short: "Run the permutation significance test",
		Long:  "Compares each training window's best grid-search score against a null distribution built from joint row shuffles of the return matrix.",
		RunE:  runPermute,
	}
	cmd.Flags().Int("runs", 0, "Number of permutation runs (overrides config)")
	return cmd
}

func runPermute(cmd *cobra.Command, args []string) error {
	c, err := loadCampaign(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	opt := c.optimizer()

	runs := c.settings.Permutation.Runs
	if n, _ := cmd.Flags().GetInt("runs"); n > 0 {
		runs = n
	}
	seed := c.settings.Backtest.Seed

	log.Info().
		Int("runs", runs).
		Int64("seed", seed).
		Str("objective", opt.Objective).
		Msg("starting permutation campaign")

	tester := &permutation.Tester{
		Optimizer: opt,
		Runs:      runs,
		Seed:      seed,
		Pool:      opt.Pool,
	}
	windows, err := tester.TestWindows(ctx, c.series, c.start, c.end)
	if err != nil {
		return fmt.Errorf("permutation test failed: %w", err)
	}

	for i, wr := range windows {
		if wr.Result.PValue != nil {
			fmt.Printf("window %d (%s): p=%.4f over %d valid runs\n",
				i+1, wr.Window.TrainStart.Format("2006-01-02"), *wr.Result.PValue, wr.Result.ValidRuns)
		} else {
			fmt.Printf("window %d (%s): inconclusive\n",
				i+1, wr.Window.TrainStart.Format("2006-01-02"))
		}
	}

	writer := artifacts.NewWriter(c.output)
	if err := writer.WritePermutation(opt.Objective, seed, windows); err != nil {
		return err
	}
	log.Info().Str("dir", writer.OutputDir()).Msg("artifacts written")

	return persistPermutation(ctx, c, windows)
}
