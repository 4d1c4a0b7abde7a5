// Package selection ranks gated candidates and admits a correlation-
// capped basket.
package selection

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/stratrun/stratrun/internal/correlation"
)

// Candidate is a symbol that passed the trend gate with its score.
type Candidate struct {
	Symbol string
	Score  float64
}

// Rank sorts candidates by descending score; ties break on symbol name
// so selection is deterministic regardless of map iteration order.
func Rank(scores map[string]float64) []Candidate {
	out := make([]Candidate, 0, len(scores))
	for sym, sc := range scores {
		out = append(out, Candidate{Symbol: sym, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Select admits up to topN symbols from the score map, walking the
// ranked list and rejecting any candidate whose absolute correlation
// with an already-admitted symbol exceeds corrCap. The candidate pool
// is oversampled to topN*3 before filtering. With a nil correlation
// matrix (insufficient history) the single top-scoring symbol is
// returned.
//
// The walk is greedy and single-pass: it does not globally optimize
// diversification, only enforces the pairwise cap in score order.
func Select(scores map[string]float64, corr *correlation.Matrix, topN int, corrCap float64) []string {
	if len(scores) == 0 || topN <= 0 {
		return nil
	}
	ranked := Rank(scores)

	if corr == nil {
		return []string{ranked[0].Symbol}
	}

	pool := ranked
	if len(pool) > topN*3 {
		pool = pool[:topN*3]
	}

	selected := make([]string, 0, topN)
	for _, cand := range pool {
		if len(selected) >= topN {
			break
		}
		admit := true
		for _, held := range selected {
			r := corr.At(cand.Symbol, held)
			if r < 0 {
				r = -r
			}
			if r > corrCap {
				log.Debug().
					Str("symbol", cand.Symbol).
					Str("held", held).
					Float64("corr", r).
					Float64("cap", corrCap).
					Msg("candidate rejected by correlation cap")
				admit = false
				break
			}
		}
		if admit {
			selected = append(selected, cand.Symbol)
		}
	}
	return selected
}
