package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
	"github.com/stratrun/stratrun/internal/permutation"
	"github.com/stratrun/stratrun/internal/persistence"
	"github.com/stratrun/stratrun/internal/walkforward"
)

func openStore(c *campaign) (*persistence.Store, error) {
	return persistence.Open(persistence.Config{
		Enabled:      c.settings.Database.Enabled,
		DSN:          c.settings.Database.DSN,
		QueryTimeout: c.settings.Database.QueryTimeout,
	})
}

func persistBacktest(ctx context.Context, c *campaign, p backtest.Params, rec metrics.Record) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	id, err := store.SaveCampaign(ctx, "backtest", c.settings.Permutation.Objective, c.settings.Backtest.Seed)
	if err != nil {
		return err
	}
	if err := store.SaveBacktest(ctx, id, p, rec); err != nil {
		return err
	}
	log.Info().Str("campaign", id).Msg("results persisted")
	return nil
}

func persistWalkforward(ctx context.Context, c *campaign, res *walkforward.Result) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	id, err := store.SaveCampaign(ctx, "walkforward", c.settings.Permutation.Objective, c.settings.Backtest.Seed)
	if err != nil {
		return err
	}
	if err := store.SaveWindows(ctx, id, res.Chosen); err != nil {
		return err
	}
	log.Info().Str("campaign", id).Msg("results persisted")
	return nil
}

func persistPermutation(ctx context.Context, c *campaign, windows []permutation.WindowResult) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	id, err := store.SaveCampaign(ctx, "permutation", c.settings.Permutation.Objective, c.settings.Backtest.Seed)
	if err != nil {
		return err
	}
	if err := store.SavePermutation(ctx, id, windows); err != nil {
		return err
	}
	log.Info().Str("campaign", id).Msg("results persisted")
	return nil
}
