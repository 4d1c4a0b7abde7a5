// Package metrics derives performance statistics from equity, return,
// and turnover series. All functions are pure.
package metrics

import (
	"fmt"
	"math"
)

// Record holds the full metrics set for one backtest run.
type Record struct {
	CAGR         float64 `json:"cagr"`
	Sharpe       float64 `json:"sharpe"`
	Calmar       float64 `json:"calmar"`
	MaxDD        float64 `json:"max_dd"`
	ProfitFactor float64 `json:"profit_factor"`
	Turnover     float64 `json:"turnover"`
}

// CAGR computes the compound annual growth rate of an equity curve.
func CAGR(equity []float64, periodsPerYear float64) float64 {
	if len(equity) < 2 || equity[0] == 0 {
		return 0
	}
	years := float64(len(equity)-1) / periodsPerYear
	if years <= 0 {
		return 0
	}
	total := equity[len(equity)-1] / equity[0]
	if total <= 0 {
		return -1
	}
	return math.Pow(total, 1.0/years) - 1.0
}

// Sharpe computes the annualized Sharpe ratio over excess returns.
// Zero when the deviation is zero.
func Sharpe(returns []float64, rfRate, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	perPeriodRF := rfRate / periodsPerYear
	mean := 0.0
	for _, r := range returns {
		mean += r - perPeriodRF
	}
	mean /= float64(len(returns))

	ss := 0.0
	for _, r := range returns {
		d := (r - perPeriodRF) - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// MaxDrawdown computes the deepest peak-to-trough decline, reported as
// a non-positive fraction.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	runningMax := equity[0]
	maxDD := 0.0
	for _, e := range equity {
		if e > runningMax {
			runningMax = e
		}
		if runningMax > 0 {
			dd := (e - runningMax) / runningMax
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Calmar computes CAGR / |MaxDD|, zero when there is no drawdown.
func Calmar(cagr, maxDD float64) float64 {
	if maxDD == 0 {
		return 0
	}
	return cagr / math.Abs(maxDD)
}

// ProfitFactor computes gross gains over gross losses: +Inf when gains
// exist with no losses, 0 when there is no data.
func ProfitFactor(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	gains, losses := 0.0, 0.0
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else if r < 0 {
			losses += -r
		}
	}
	if losses == 0 {
		if gains > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gains / losses
}

// AnnualizedTurnover computes mean per-period turnover scaled to a year.
func AnnualizedTurnover(turnover []float64, periodsPerYear float64) float64 {
	if len(turnover) == 0 {
		return 0
	}
	mean := 0.0
	for _, t := range turnover {
		mean += t
	}
	mean /= float64(len(turnover))
	return mean * periodsPerYear
}

// Compute derives the full Record from one returns/equity/turnover triple.
func Compute(returns, equity, turnover []float64, periodsPerYear float64) Record {
	cagr := CAGR(equity, periodsPerYear)
	maxDD := MaxDrawdown(equity)
	return Record{
		CAGR:         cagr,
		Sharpe:       Sharpe(returns, 0, periodsPerYear),
		Calmar:       Calmar(cagr, maxDD),
		MaxDD:        maxDD,
		ProfitFactor: ProfitFactor(returns),
		Turnover:     AnnualizedTurnover(turnover, periodsPerYear),
	}
}

// Objective extracts one metric by its configured name. Used by the
// walk-forward grid search and the permutation tester.
func (r Record) Objective(name string) (float64, error) {
	switch name {
	case "Calmar", "calmar":
		return r.Calmar, nil
	case "CAGR", "cagr":
		return r.CAGR, nil
	case "Sharpe", "sharpe":
		return r.Sharpe, nil
	case "PF", "ProfitFactor", "profit_factor":
		return r.ProfitFactor, nil
	case "MaxDD", "max_dd":
		return r.MaxDD, nil
	case "Turnover", "turnover":
		return r.Turnover, nil
	}
	return 0, fmt.Errorf("unknown objective metric %q", name)
}
