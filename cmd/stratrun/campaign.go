package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratrun/stratrun/internal/async"
	"github.com/stratrun/stratrun/internal/config"
	"github.com/stratrun/stratrun/internal/data"
	"github.com/stratrun/stratrun/internal/market"
	"github.com/stratrun/stratrun/internal/walkforward"
)

// campaign bundles everything the subcommands share: validated
// settings, loaded bar data, and the resolved date range.
type campaign struct {
	settings config.Settings
	series   map[string]*market.PriceSeries
	start    time.Time
	end      time.Time
	output   string
}

// loadCampaign resolves flags into a runnable campaign. Start and end
// default to the union of the loaded data's date range.
func loadCampaign(cmd *cobra.Command) (*campaign, error) {
	settings := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		settings, err = config.Load(path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("loaded settings")
	}

	dataDir, _ := cmd.Flags().GetString("data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	series, err := data.LoadDir(absDataDir, settings.Universe)
	if err != nil {
		return nil, err
	}

	c := &campaign{settings: settings, series: series}

	// Data bounds are the default campaign range.
	for _, s := range series {
		first := s.Bars[0].Timestamp
		last := s.Bars[s.Len()-1].Timestamp
		if c.start.IsZero() || first.Before(c.start) {
			c.start = first
		}
		if c.end.IsZero() || last.After(c.end) {
			c.end = last
		}
	}
	if c.start, err = overrideDate(cmd, "start", c.start); err != nil {
		return nil, err
	}
	if c.end, err = overrideDate(cmd, "end", c.end); err != nil {
		return nil, err
	}
	if !c.start.Before(c.end) {
		return nil, fmt.Errorf("start %s must precede end %s",
			c.start.Format("2006-01-02"), c.end.Format("2006-01-02"))
	}

	c.output = settings.OutputDir
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		c.output = out
	}

	log.Info().
		Int("symbols", len(series)).
		Time("start", c.start).
		Time("end", c.end).
		Msg("campaign loaded")
	return c, nil
}

func overrideDate(cmd *cobra.Command, flag string, fallback time.Time) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(flag)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q: %w", flag, raw, err)
	}
	return t, nil
}

// optimizer assembles the walk-forward optimizer from the settings.
func (c *campaign) optimizer() *walkforward.Optimizer {
	return &walkforward.Optimizer{
		Base:           c.settings.Params(),
		Grid:           c.settings.Walkforward.Reoptimize,
		Objective:      c.settings.Permutation.Objective,
		PeriodsPerYear: c.settings.Backtest.PeriodsPerYear,
		TrainYears:     c.settings.Walkforward.TrainYears,
		OOSMonths:      c.settings.Walkforward.OOSMonths,
		Pool:           async.NewPool(c.settings.Workers),
	}
}
