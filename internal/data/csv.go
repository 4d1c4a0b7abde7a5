// Package data is the offline boundary to the data collaborator: it
// loads one CSV of daily bars per symbol and enforces the upstream
// contract (ordered timestamps, sane OHLC ranges) at load time.
// Contract violations are caller errors, not engine failures.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/market"
)

// dateLayouts accepted in the first CSV column.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// LoadCSV reads a single symbol's bars from a CSV file with the
// header date,open,high,low,close,volume.
func LoadCSV(path, symbol string) (*market.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	if header[0] != "date" {
		return nil, fmt.Errorf("%s: unexpected header %v, want date,open,high,low,close,volume", path, header)
	}

	var bars []market.Bar
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		bar, err := parseBar(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		bars = append(bars, bar)
	}

	series, err := market.NewPriceSeries(symbol, bars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

func parseBar(record []string) (market.Bar, error) {
	var ts time.Time
	var err error
	for _, layout := range dateLayouts {
		ts, err = time.Parse(layout, record[0])
		if err == nil {
			break
		}
	}
	if err != nil {
		return market.Bar{}, fmt.Errorf("unparseable date %q", record[0])
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		fields[i], err = strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("unparseable value %q", record[i+1])
		}
	}
	return market.Bar{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

// LoadDir loads <dir>/<SYMBOL>.csv for each requested symbol. A symbol
// with no file is logged and skipped; at least one symbol must load.
func LoadDir(dir string, symbols []string) (map[string]*market.PriceSeries, error) {
	out := make(map[string]*market.PriceSeries, len(symbols))
	for _, sym := range symbols {
		path := filepath.Join(dir, sym+".csv")
		if _, err := os.Stat(path); err != nil {
			log.Warn().Str("symbol", sym).Str("path", path).Msg("no data file for symbol, skipping")
			continue
		}
		series, err := LoadCSV(path, sym)
		if err != nil {
			return nil, err
		}
		out[sym] = series
		log.Debug().Str("symbol", sym).Int("bars", series.Len()).Msg("loaded symbol")
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no data files found in %s for %d symbols", dir, len(symbols))
	}
	return out, nil
}
