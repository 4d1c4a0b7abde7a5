package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDefaultValues(t *testing.T) {
	s := Default()
	assert.Equal(t, 20, s.Features.EMAFast)
	assert.Equal(t, 50, s.Features.EMASlow)
	assert.False(t, s.Features.MACD.Enabled)
	assert.Equal(t, 2, s.Selection.TopN)
	assert.Equal(t, 0.7, s.Selection.CorrCap)
	assert.Equal(t, 0.5, s.Weights.MaxWeightPerAsset)
	assert.Equal(t, 0.05, s.Weights.CashBuffer)
	assert.Equal(t, int64(42), s.Backtest.Seed)
	assert.Equal(t, 252.0, s.Backtest.PeriodsPerYear)
	assert.Equal(t, "Calmar", s.Permutation.Objective)
	assert.False(t, s.Database.Enabled)
}

func TestValidateRejectsFastGEQSlow(t *testing.T) {
	s := Default()
	s.Features.EMAFast = 50
	s.Features.EMASlow = 20
	assert.Error(t, s.Validate())

	s.Features.EMAFast = 50
	s.Features.EMASlow = 50
	assert.Error(t, s.Validate())
}

func TestValidateRejectsEmptyUniverse(t *testing.T) {
	s := Default()
	s.Universe = nil
	assert.Error(t, s.Validate())
}

func TestValidateRejectsUnknownObjective(t *testing.T) {
	s := Default()
	s.Permutation.Objective = "Sortino"
	assert.Error(t, s.Validate())
}

func TestValidateRejectsEnabledDBWithoutDSN(t *testing.T) {
	s := Default()
	s.Database.Enabled = true
	assert.Error(t, s.Validate())

	s.Database.DSN = "postgres://localhost/stratrun"
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsNegativeRuns(t *testing.T) {
	s := Default()
	s.Permutation.Runs = -1
	assert.Error(t, s.Validate())
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
universe: [SPY, QQQ]
selection:
  top_n: 3
permutation:
  objective: Sharpe
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ"}, s.Universe)
	assert.Equal(t, 3, s.Selection.TopN)
	assert.Equal(t, "Sharpe", s.Permutation.Objective)
	// Untouched sections keep their defaults.
	assert.Equal(t, 20, s.Features.EMAFast)
	assert.Equal(t, 0.05, s.Weights.CashBuffer)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
features:
  ema_fast: 80
  ema_slow: 40
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParamsMapping(t *testing.T) {
	s := Default()
	p := s.Params()
	assert.Equal(t, s.Features.EMAFast, p.EMAFast)
	assert.Equal(t, s.Selection.CorrCap, p.CorrCap)
	assert.Equal(t, s.Weights.CashBuffer, p.CashBuffer)
	assert.Equal(t, s.Costs.CommissionRate, p.CommissionRate)
	assert.NoError(t, p.Validate())
}
