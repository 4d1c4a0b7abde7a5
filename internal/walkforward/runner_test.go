package walkforward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratrun/stratrun/internal/async"
)

func TestOptimizerRun(t *testing.T) {
	if testing.Short() {
		t.Skip("full walk-forward campaign")
	}
	sim := gridTestSim(t, 500)
	opt := gridTestOptimizer(async.NewPool(4))
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 500)

	res, err := opt.Run(context.Background(), sim, start, end)
	require.NoError(t, err)
	require.NotEmpty(t, res.Windows)

	assert.Equal(t, len(res.Windows), len(res.Chosen)+res.Skipped)
	require.Equal(t, len(res.OOSDates), len(res.OOSEquity))

	for i, wr := range res.Chosen {
		assert.False(t, wr.Window.TrainEnd.After(wr.Window.OOSStart), "window %d trains on OOS data", i)
		require.NotNil(t, wr.OOSMetrics, "window %d", i)
		assert.NoError(t, wr.Params.Validate(), "window %d", i)
	}

	// Stitched OOS curve: each segment is normalized so the curve
	// starts at 1.0, and dates stay strictly increasing.
	if len(res.OOSEquity) > 0 {
		assert.InDelta(t, 1.0, res.OOSEquity[0], 1e-12)
	}
	for i := 1; i < len(res.OOSDates); i++ {
		assert.True(t, res.OOSDates[i-1].Before(res.OOSDates[i]), "OOS dates out of order at %d", i)
	}
}

func TestOptimizerRunNoWindows(t *testing.T) {
	sim := gridTestSim(t, 100)
	opt := gridTestOptimizer(async.NewPool(2))
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := opt.Run(context.Background(), sim, start, start.AddDate(0, 0, 100))
	assert.Error(t, err, "100 days cannot hold a one-year training window")
}

func TestOptimizerRunInvalidGrid(t *testing.T) {
	sim := gridTestSim(t, 500)
	opt := gridTestOptimizer(async.NewPool(2))
	opt.Grid.EMAFast = nil
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := opt.Run(context.Background(), sim, start, start.AddDate(0, 0, 500))
	assert.Error(t, err)
}
