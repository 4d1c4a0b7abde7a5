// Package config loads and validates the engine settings. Settings is
// a closed struct: every recognized field is enumerated here, nothing
// is duck-typed at the core boundary.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
	"github.com/stratrun/stratrun/internal/walkforward"
)

// MACDSettings configures the optional MACD gate.
type MACDSettings struct {
	Enabled bool `yaml:"enabled"`
	Fast    int  `yaml:"fast"`
	Slow    int  `yaml:"slow"`
	Signal  int  `yaml:"signal"`
}

// FeatureSettings holds indicator windows.
type FeatureSettings struct {
	EMAFast   int          `yaml:"ema_fast"`
	EMASlow   int          `yaml:"ema_slow"`
	ATRWindow int          `yaml:"atr_window"`
	MACD      MACDSettings `yaml:"macd"`
}

// SelectionSettings holds basket-selection parameters.
type SelectionSettings struct {
	TopN       int     `yaml:"top_n"`
	CorrWindow int     `yaml:"corr_window"`
	CorrCap    float64 `yaml:"corr_cap"`
	MinScore   float64 `yaml:"min_score"`
}

// WeightSettings holds portfolio-weighting parameters.
type WeightSettings struct {
	VolWindow         int     `yaml:"vol_window"`
	MaxWeightPerAsset float64 `yaml:"max_weight_per_asset"`
	CashBuffer        float64 `yaml:"cash_buffer"`
}

// CostSettings holds the trading cost model.
type CostSettings struct {
	CommissionRate float64 `yaml:"commission_rate"`
	SlippageBps    float64 `yaml:"slippage_bps"`
}

// BacktestSettings holds simulation-wide parameters.
type BacktestSettings struct {
	Seed           int64   `yaml:"seed"`
	PeriodsPerYear float64 `yaml:"periods_per_year"`
}

// WalkforwardSettings holds the walk-forward protocol parameters.
type WalkforwardSettings struct {
	TrainYears int              `yaml:"train_years"`
	OOSMonths  int              `yaml:"oos_months"`
	Reoptimize walkforward.Grid `yaml:"reoptimize"`
}

// PermutationSettings holds the significance-test parameters.
type PermutationSettings struct {
	Runs      int    `yaml:"runs"`
	Objective string `yaml:"objective"`
}

// DatabaseSettings configures the optional campaign-result store.
// Disabled by default; requires an explicit DSN when enabled.
type DatabaseSettings struct {
	Enabled      bool          `yaml:"enabled"`
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// Settings is the complete, typed, immutable configuration surface.
type Settings struct {
	Universe    []string            `yaml:"universe"`
	Features    FeatureSettings     `yaml:"features"`
	Selection   SelectionSettings   `yaml:"selection"`
	Weights     WeightSettings      `yaml:"weights"`
	Costs       CostSettings        `yaml:"costs"`
	Backtest    BacktestSettings    `yaml:"backtest"`
	Walkforward WalkforwardSettings `yaml:"walkforward"`
	Permutation PermutationSettings `yaml:"permutation"`
	Workers     int                 `yaml:"workers"`
	OutputDir   string              `yaml:"output_dir"`
	Database    DatabaseSettings    `yaml:"database"`
}

// Default returns the stock settings.
func Default() Settings {
	return Settings{
		Universe: []string{"SPY", "QQQ", "VTI", "TLT", "IEF", "GLD", "XLE", "BND", "BITO"},
		Features: FeatureSettings{
			EMAFast:   20,
			EMASlow:   50,
			ATRWindow: 20,
			MACD:      MACDSettings{Enabled: false, Fast: 12, Slow: 26, Signal: 9},
		},
		Selection: SelectionSettings{
			TopN:       2,
			CorrWindow: 90,
			CorrCap:    0.7,
			MinScore:   0.0,
		},
		Weights: WeightSettings{
			VolWindow:         20,
			MaxWeightPerAsset: 0.5,
			CashBuffer:        0.05,
		},
		Costs: CostSettings{
			CommissionRate: 0.0035,
			SlippageBps:    1.0,
		},
		Backtest: BacktestSettings{
			Seed:           42,
			PeriodsPerYear: 252,
		},
		Walkforward: WalkforwardSettings{
			TrainYears: 3,
			OOSMonths:  3,
			Reoptimize: walkforward.DefaultGrid(),
		},
		Permutation: PermutationSettings{
			Runs:      200,
			Objective: "Calmar",
		},
		Workers:   0,
		OutputDir: "./artifacts",
		Database: DatabaseSettings{
			Enabled:      false,
			QueryTimeout: 30 * time.Second,
		},
	}
}

// Load reads a YAML settings file layered over the defaults and
// validates the result.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("config validation failed: %w", err)
	}
	return s, nil
}

// Params assembles the backtest parameter tuple from the settings.
func (s Settings) Params() backtest.Params {
	return backtest.Params{
		EMAFast:   s.Features.EMAFast,
		EMASlow:   s.Features.EMASlow,
		ATRWindow: s.Features.ATRWindow,
		MACD: backtest.MACDParams{
			Enabled: s.Features.MACD.Enabled,
			Fast:    s.Features.MACD.Fast,
			Slow:    s.Features.MACD.Slow,
			Signal:  s.Features.MACD.Signal,
		},
		TopN:              s.Selection.TopN,
		CorrWindow:        s.Selection.CorrWindow,
		CorrCap:           s.Selection.CorrCap,
		MinScore:          s.Selection.MinScore,
		VolWindow:         s.Weights.VolWindow,
		MaxWeightPerAsset: s.Weights.MaxWeightPerAsset,
		CashBuffer:        s.Weights.CashBuffer,
		CommissionRate:    s.Costs.CommissionRate,
		SlippageBps:       s.Costs.SlippageBps,
	}
}

// Validate rejects degenerate configurations before any simulation
// runs.
func (s Settings) Validate() error {
	if len(s.Universe) == 0 {
		return fmt.Errorf("universe must not be empty")
	}
	if err := s.Params().Validate(); err != nil {
		return err
	}
	if s.Backtest.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods_per_year must be positive, got %.1f", s.Backtest.PeriodsPerYear)
	}
	if s.Walkforward.TrainYears <= 0 {
		return fmt.Errorf("train_years must be positive, got %d", s.Walkforward.TrainYears)
	}
	if s.Walkforward.OOSMonths <= 0 {
		return fmt.Errorf("oos_months must be positive, got %d", s.Walkforward.OOSMonths)
	}
	if err := s.Walkforward.Reoptimize.Validate(); err != nil {
		return err
	}
	if s.Permutation.Runs < 0 {
		return fmt.Errorf("permutation runs must be non-negative, got %d", s.Permutation.Runs)
	}
	if _, err := (metrics.Record{}).Objective(s.Permutation.Objective); err != nil {
		return err
	}
	if s.Database.Enabled && s.Database.DSN == "" {
		return fmt.Errorf("database dsn is required when the store is enabled")
	}
	return nil
}
