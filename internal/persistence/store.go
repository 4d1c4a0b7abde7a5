// Package persistence stores campaign results in PostgreSQL. The store
// is optional: disabled by default, enabled only with an explicit DSN.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
	"github.com/stratrun/stratrun/internal/permutation"
	"github.com/stratrun/stratrun/internal/walkforward"
)

// Config holds store connection configuration.
type Config struct {
	Enabled      bool
	DSN          string
	QueryTimeout time.Duration
}

// Store persists campaign, window, and permutation records. A nil or
// disabled Store turns every call into a no-op so callers never branch
// on persistence being configured.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to the configured database and verifies connectivity.
// Returns (nil, nil) when the store is disabled.
func Open(cfg Config) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("campaign store connected")
	return NewStore(db, cfg.QueryTimeout), nil
}

// NewStore wraps an existing connection. Split from Open so tests can
// inject a mock database.
func NewStore(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// Close releases the connection. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Campaign is one persisted run of the engine.
type Campaign struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	Objective string    `db:"objective"`
	Seed      int64     `db:"seed"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveCampaign inserts a campaign row and returns its generated ID.
func (s *Store) SaveCampaign(ctx context.Context, kind, objective string, seed int64) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}
	id := uuid.New().String()
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	const q = `INSERT INTO campaigns (id, kind, objective, seed, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(qctx, q, id, kind, objective, seed, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert campaign: %w", err)
	}
	return id, nil
}

// SaveBacktest persists a single backtest's parameters and metrics
// under a campaign.
func (s *Store) SaveBacktest(ctx context.Context, campaignID string, p backtest.Params, rec metrics.Record) error {
	if s == nil || s.db == nil {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	const q = `INSERT INTO backtests
		(campaign_id, ema_fast, ema_slow, top_n, corr_cap,
		 cagr, sharpe, calmar, max_dd, profit_factor, turnover)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(qctx, q, campaignID,
		p.EMAFast, p.EMASlow, p.TopN, p.CorrCap,
		rec.CAGR, rec.Sharpe, rec.Calmar, rec.MaxDD, rec.ProfitFactor, rec.Turnover)
	if err != nil {
		return fmt.Errorf("failed to insert backtest: %w", err)
	}
	return nil
}

// SaveWindows persists the chosen parameters and OOS metrics of every
// walk-forward window under a campaign.
func (s *Store) SaveWindows(ctx context.Context, campaignID string, windows []walkforward.WindowResult) error {
	if s == nil || s.db == nil {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	const q = `INSERT INTO wf_windows
		(campaign_id, train_start, train_end, oos_start, oos_end,
		 ema_fast, ema_slow, top_n, corr_cap, train_score,
		 oos_cagr, oos_sharpe, oos_calmar, oos_max_dd)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	for _, wr := range windows {
		var cagr, sharpe, calmar, maxDD float64
		if wr.OOSMetrics != nil {
			cagr, sharpe, calmar, maxDD = wr.OOSMetrics.CAGR, wr.OOSMetrics.Sharpe, wr.OOSMetrics.Calmar, wr.OOSMetrics.MaxDD
		}
		_, err := s.db.ExecContext(qctx, q, campaignID,
			wr.Window.TrainStart, wr.Window.TrainEnd, wr.Window.OOSStart, wr.Window.OOSEnd,
			wr.Params.EMAFast, wr.Params.EMASlow, wr.Params.TopN, wr.Params.CorrCap, wr.TrainScore,
			cagr, sharpe, calmar, maxDD)
		if err != nil {
			return fmt.Errorf("failed to insert window: %w", err)
		}
	}
	return nil
}

// SavePermutation persists per-window permutation outcomes under a
// campaign. Inconclusive windows store NULL p-values.
func (s *Store) SavePermutation(ctx context.Context, campaignID string, windows []permutation.WindowResult) error {
	if s == nil || s.db == nil {
		return nil
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	const q = `INSERT INTO perm_tests
		(campaign_id, train_start, train_end, real_score, p_value, runs, valid_runs)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, wr := range windows {
		_, err := s.db.ExecContext(qctx, q, campaignID,
			wr.Window.TrainStart, wr.Window.TrainEnd,
			wr.Result.RealScore, wr.Result.PValue, wr.Result.Runs, wr.Result.ValidRuns)
		if err != nil {
			return fmt.Errorf("failed to insert permutation result: %w", err)
		}
	}
	return nil
}
