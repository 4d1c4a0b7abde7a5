// Package artifacts persists campaign outputs to disk: results JSON,
// equity curve CSV, and a markdown report, grouped under a per-day
// directory with a unique run ID.
package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/backtest"
	"github.com/stratrun/stratrun/internal/metrics"
	"github.com/stratrun/stratrun/internal/permutation"
	"github.com/stratrun/stratrun/internal/walkforward"
)

// Writer handles writing campaign artifacts to disk.
type Writer struct {
	outputDir string
	runID     string
	now       func() time.Time
}

// NewWriter creates a writer rooted at outputDir/<date>/<run-id>.
func NewWriter(outputDir string) *Writer {
	now := time.Now
	runID := uuid.New().String()[:8]
	return &Writer{
		outputDir: filepath.Join(outputDir, now().Format("2006-01-02"), runID),
		runID:     runID,
		now:       now,
	}
}

// RunID returns the unique identifier for this run's artifacts.
func (w *Writer) RunID() string { return w.runID }

// OutputDir returns the full output directory path.
func (w *Writer) OutputDir() string { return w.outputDir }

func (w *Writer) writeJSON(name string, v any) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	log.Debug().Str("path", path).Msg("wrote artifact")
	return nil
}

func (w *Writer) writeEquityCSV(name string, dates []time.Time, equity []float64) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"date", "equity"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i, d := range dates {
		row := []string{d.Format("2006-01-02"), strconv.FormatFloat(equity[i], 'f', 8, 64)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeMarkdown(name, content string) error {
	path := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// BacktestArtifact bundles everything a single backtest run produced.
type BacktestArtifact struct {
	RunID     string           `json:"run_id"`
	Generated time.Time        `json:"generated"`
	Params    backtest.Params  `json:"params"`
	Metrics   metrics.Record   `json:"metrics"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
}

// WriteBacktest persists a single-run backtest: metrics JSON, the
// equity curve, and a short report.
func (w *Writer) WriteBacktest(p backtest.Params, res *backtest.Result, rec metrics.Record) error {
	art := BacktestArtifact{
		RunID:     w.runID,
		Generated: w.now().UTC(),
		Params:    p,
		Metrics:   rec,
	}
	if !res.Empty() {
		art.Start = res.Dates[0]
		art.End = res.Dates[len(res.Dates)-1]
	}
	if err := w.writeJSON("backtest.json", art); err != nil {
		return err
	}
	if err := w.writeEquityCSV("equity.csv", res.Dates, res.Equity); err != nil {
		return err
	}
	return w.writeMarkdown("report.md", w.backtestReport(art))
}

func (w *Writer) backtestReport(art BacktestArtifact) string {
	var b strings.Builder
	b.WriteString("# Backtest Report\n\n")
	b.WriteString(fmt.Sprintf("**Run**: %s\n", art.RunID))
	b.WriteString(fmt.Sprintf("**Generated**: %s\n", art.Generated.Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Period**: %s to %s\n\n",
		art.Start.Format("2006-01-02"), art.End.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("**Parameters**: EMA %d/%d, TopN=%d, CorrCap=%.2f\n\n",
		art.Params.EMAFast, art.Params.EMASlow, art.Params.TopN, art.Params.CorrCap))
	writeMetricsTable(&b, art.Metrics)
	b.WriteString("## Artifact Paths\n\n")
	b.WriteString(fmt.Sprintf("- **Results JSON**: `%s`\n", filepath.Join(w.outputDir, "backtest.json")))
	b.WriteString(fmt.Sprintf("- **Equity CSV**: `%s`\n", filepath.Join(w.outputDir, "equity.csv")))
	return b.String()
}

func writeMetricsTable(b *strings.Builder, rec metrics.Record) {
	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|------:|\n")
	b.WriteString(fmt.Sprintf("| CAGR | %.2f%% |\n", rec.CAGR*100))
	b.WriteString(fmt.Sprintf("| Sharpe | %.2f |\n", rec.Sharpe))
	b.WriteString(fmt.Sprintf("| Calmar | %.2f |\n", rec.Calmar))
	b.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", rec.MaxDD*100))
	b.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", rec.ProfitFactor))
	b.WriteString(fmt.Sprintf("| Turnover (ann.) | %.2f |\n\n", rec.Turnover))
}

// WalkforwardArtifact bundles a walk-forward campaign's outputs.
type WalkforwardArtifact struct {
	RunID      string              `json:"run_id"`
	Generated  time.Time           `json:"generated"`
	Objective  string              `json:"objective"`
	Result     *walkforward.Result `json:"result"`
	OOSMetrics metrics.Record      `json:"oos_metrics"`
}

// WriteWalkforward persists a walk-forward campaign: per-window chosen
// parameters, the stitched OOS equity curve, and the report.
func (w *Writer) WriteWalkforward(objective string, res *walkforward.Result, oos metrics.Record) error {
	art := WalkforwardArtifact{
		RunID:      w.runID,
		Generated:  w.now().UTC(),
		Objective:  objective,
		Result:     res,
		OOSMetrics: oos,
	}
	if err := w.writeJSON("walkforward.json", art); err != nil {
		return err
	}
	if err := w.writeEquityCSV("oos_equity.csv", res.OOSDates, res.OOSEquity); err != nil {
		return err
	}
	return w.writeMarkdown("report.md", w.walkforwardReport(art))
}

func (w *Writer) walkforwardReport(art WalkforwardArtifact) string {
	var b strings.Builder
	b.WriteString("# Walk-Forward Report\n\n")
	b.WriteString(fmt.Sprintf("**Run**: %s\n", art.RunID))
	b.WriteString(fmt.Sprintf("**Generated**: %s\n", art.Generated.Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Objective**: %s\n", art.Objective))
	b.WriteString(fmt.Sprintf("**Windows**: %d total, %d optimized, %d skipped\n\n",
		len(art.Result.Windows), len(art.Result.Chosen), art.Result.Skipped))

	writeMetricsTable(&b, art.OOSMetrics)

	b.WriteString("## Windows\n\n")
	b.WriteString("| OOS Start | OOS End | EMA Fast | EMA Slow | TopN | CorrCap | Train Score |\n")
	b.WriteString("|-----------|---------|---------:|---------:|-----:|--------:|------------:|\n")
	for _, wr := range art.Result.Chosen {
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %.2f | %.3f |\n",
			wr.Window.OOSStart.Format("2006-01-02"), wr.Window.OOSEnd.Format("2006-01-02"),
			wr.Params.EMAFast, wr.Params.EMASlow, wr.Params.TopN, wr.Params.CorrCap, wr.TrainScore))
	}
	b.WriteString("\n## Artifact Paths\n\n")
	b.WriteString(fmt.Sprintf("- **Results JSON**: `%s`\n", filepath.Join(w.outputDir, "walkforward.json")))
	b.WriteString(fmt.Sprintf("- **OOS Equity CSV**: `%s`\n", filepath.Join(w.outputDir, "oos_equity.csv")))
	return b.String()
}

// PermutationArtifact bundles a permutation campaign's outputs.
type PermutationArtifact struct {
	RunID     string                     `json:"run_id"`
	Generated time.Time                  `json:"generated"`
	Objective string                     `json:"objective"`
	Seed      int64                      `json:"seed"`
	Windows   []permutation.WindowResult `json:"windows"`
}

// WritePermutation persists the permutation campaign's per-window
// p-values and null distributions.
func (w *Writer) WritePermutation(objective string, seed int64, windows []permutation.WindowResult) error {
	art := PermutationArtifact{
		RunID:     w.runID,
		Generated: w.now().UTC(),
		Objective: objective,
		Seed:      seed,
		Windows:   windows,
	}
	if err := w.writeJSON("permutation.json", art); err != nil {
		return err
	}
	return w.writeMarkdown("report.md", w.permutationReport(art))
}

func (w *Writer) permutationReport(art PermutationArtifact) string {
	var b strings.Builder
	b.WriteString("# Permutation Test Report\n\n")
	b.WriteString(fmt.Sprintf("**Run**: %s\n", art.RunID))
	b.WriteString(fmt.Sprintf("**Generated**: %s\n", art.Generated.Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Objective**: %s\n", art.Objective))
	b.WriteString(fmt.Sprintf("**Seed**: %d\n\n", art.Seed))

	b.WriteString("## Windows\n\n")
	b.WriteString("| Train Start | Train End | Real Score | Valid Runs | p-value |\n")
	b.WriteString("|-------------|-----------|-----------:|-----------:|--------:|\n")
	for _, wr := range art.Windows {
		real := "n/a"
		if wr.Result.RealScore != nil {
			real = fmt.Sprintf("%.3f", *wr.Result.RealScore)
		}
		p := "inconclusive"
		if wr.Result.PValue != nil {
			p = fmt.Sprintf("%.4f", *wr.Result.PValue)
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
			wr.Window.TrainStart.Format("2006-01-02"), wr.Window.TrainEnd.Format("2006-01-02"),
			real, wr.Result.ValidRuns, p))
	}
	b.WriteString("\n## Artifact Paths\n\n")
	b.WriteString(fmt.Sprintf("- **Results JSON**: `%s`\n", filepath.Join(w.outputDir, "permutation.json")))
	return b.String()
}
