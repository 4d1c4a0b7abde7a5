package backtest

import "fmt"

// MACDParams configures the optional MACD gate.
type MACDParams struct {
	Enabled bool `json:"enabled"`
	Fast    int  `json:"fast"`
	Slow    int  `json:"slow"`
	Signal  int  `json:"signal"`
}

// Params is the full hyperparameter tuple for one simulation. The
// walk-forward grid search varies EMAFast, EMASlow, TopN, and CorrCap
// and keeps the rest fixed.
type Params struct {
	EMAFast   int        `json:"ema_fast"`
	EMASlow   int        `json:"ema_slow"`
	ATRWindow int        `json:"atr_window"`
	MACD      MACDParams `json:"macd"`

	TopN       int     `json:"top_n"`
	CorrWindow int     `json:"corr_window"`
	CorrCap    float64 `json:"corr_cap"`
	MinScore   float64 `json:"min_score"`

	VolWindow         int     `json:"vol_window"`
	MaxWeightPerAsset float64 `json:"max_weight_per_asset"`
	CashBuffer        float64 `json:"cash_buffer"`

	CommissionRate float64 `json:"commission_rate"`
	SlippageBps    float64 `json:"slippage_bps"`
}

// DefaultParams mirrors the stock configuration.
func DefaultParams() Params {
	return Params{
		EMAFast:           20,
		EMASlow:           50,
		ATRWindow:         20,
		MACD:              MACDParams{Enabled: false, Fast: 12, Slow: 26, Signal: 9},
		TopN:              2,
		CorrWindow:        90,
		CorrCap:           0.7,
		MinScore:          0.0,
		VolWindow:         20,
		MaxWeightPerAsset: 0.5,
		CashBuffer:        0.05,
		CommissionRate:    0.0035,
		SlippageBps:       1.0,
	}
}

// Validate rejects degenerate parameter combinations before any
// simulation runs.
func (p Params) Validate() error {
	if p.EMAFast <= 0 || p.EMASlow <= 0 || p.ATRWindow <= 0 {
		return fmt.Errorf("indicator windows must be positive: ema_fast=%d ema_slow=%d atr_window=%d",
			p.EMAFast, p.EMASlow, p.ATRWindow)
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema_fast (%d) must be less than ema_slow (%d)", p.EMAFast, p.EMASlow)
	}
	if p.MACD.Enabled {
		if p.MACD.Fast <= 0 || p.MACD.Slow <= 0 || p.MACD.Signal <= 0 {
			return fmt.Errorf("macd periods must be positive")
		}
		if p.MACD.Fast >= p.MACD.Slow {
			return fmt.Errorf("macd fast (%d) must be less than slow (%d)", p.MACD.Fast, p.MACD.Slow)
		}
	}
	if p.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", p.TopN)
	}
	if p.CorrWindow <= 0 {
		return fmt.Errorf("corr_window must be positive, got %d", p.CorrWindow)
	}
	if p.CorrCap <= 0 || p.CorrCap > 1 {
		return fmt.Errorf("corr_cap must be in (0, 1], got %.3f", p.CorrCap)
	}
	if p.VolWindow <= 1 {
		return fmt.Errorf("vol_window must be greater than 1, got %d", p.VolWindow)
	}
	if p.MaxWeightPerAsset <= 0 || p.MaxWeightPerAsset > 1 {
		return fmt.Errorf("max_weight_per_asset must be in (0, 1], got %.3f", p.MaxWeightPerAsset)
	}
	if p.CashBuffer < 0 || p.CashBuffer >= 1 {
		return fmt.Errorf("cash_buffer must be in [0, 1), got %.3f", p.CashBuffer)
	}
	if p.CommissionRate < 0 || p.SlippageBps < 0 {
		return fmt.Errorf("costs must be non-negative: commission=%.5f slippage_bps=%.2f",
			p.CommissionRate, p.SlippageBps)
	}
	return nil
}

// warmup is the number of bars a symbol needs before its score and
// gate are considered defined.
func (p Params) warmup() int {
	need := p.EMASlow
	if p.ATRWindow > need {
		need = p.ATRWindow
	}
	if p.MACD.Enabled && p.MACD.Slow > need {
		need = p.MACD.Slow
	}
	return need
}
