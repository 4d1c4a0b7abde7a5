package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "stratrun"
	version = "v0.3.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Walk-forward validation engine for momentum strategies",
		Version: version,
		Long: `stratrun scores a fixed ETF universe on trend-adjusted momentum,
builds correlation-capped inverse-volatility baskets, and validates the
strategy with lagged backtests, walk-forward re-optimization, and
permutation significance testing.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML settings file (defaults built in)")
	rootCmd.PersistentFlags().String("data", "./data", "Directory of per-symbol OHLCV CSV files")
	rootCmd.PersistentFlags().String("output", "", "Artifact output directory (overrides config)")
	rootCmd.PersistentFlags().String("start", "", "Campaign start date (YYYY-MM-DD, default: first bar)")
	rootCmd.PersistentFlags().String("end", "", "Campaign end date (YYYY-MM-DD, default: last bar)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newWalkforwardCmd())
	rootCmd.AddCommand(newPermuteCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setupLogging routes structured logs to stderr: pretty console output
// on a TTY, plain JSON when piped.
func setupLogging(cmd *cobra.Command) {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", appName, version)
}
