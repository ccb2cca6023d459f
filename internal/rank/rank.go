// Package rank produces the deterministic top-N ordering.
package rank

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rickgao/top500/internal/model"
)

// ErrInsufficientUniverse is returned by Accept when a ranking is too short to persist.
var ErrInsufficientUniverse = errors.New("insufficient universe")

// Top ranks entries by valuation, descending, and returns at most n rows.
// Non-finite valuations are dropped, duplicates keep their first occurrence,
// and equal valuations keep input order. entries is not modified.
func Top(entries []model.Valued, n int) []model.RankedEntry {
	if n <= 0 {
		return []model.RankedEntry{}
	}

	seen := make(map[string]struct{}, len(entries))
	kept := make([]model.Valued, 0, len(entries))
	for _, e := range entries {
		if math.IsNaN(e.Valuation) || math.IsInf(e.Valuation, 0) {
			continue
		}
		if _, dup := seen[e.Symbol]; dup {
			continue
		}
		seen[e.Symbol] = struct{}{}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Valuation > kept[j].Valuation
	})

	if len(kept) > n {
		kept = kept[:n]
	}

	out := make([]model.RankedEntry, len(kept))
	for i, e := range kept {
		name := e.DisplayName
		if name == "" {
			name = e.Symbol
		}
		out[i] = model.RankedEntry{
			Rank:        i + 1,
			Symbol:      e.Symbol,
			DisplayName: name,
			Valuation:   e.Valuation,
		}
	}
	return out
}

// Accept gates a ranking before persistence.
func Accept(ranking []model.RankedEntry, minimum int) error {
	if len(ranking) < minimum {
		return fmt.Errorf("%w: ranked %d entries, need %d", ErrInsufficientUniverse, len(ranking), minimum)
	}
	return nil
}

// Join attaches valuations to universe entries. Entries without a record
// are dropped; output follows universe order so ranking ties stay stable
// regardless of enrichment completion order.
func Join(universe []model.UniverseEntry, records []model.ValuationRecord) []model.Valued {
	bySymbol := make(map[string]float64, len(records))
	for _, r := range records {
		if _, ok := bySymbol[r.Symbol]; !ok {
			bySymbol[r.Symbol] = r.Valuation
		}
	}

	out := make([]model.Valued, 0, len(records))
	for _, e := range universe {
		v, ok := bySymbol[e.Symbol]
		if !ok {
			continue
		}
		out = append(out, model.Valued{Symbol: e.Symbol, DisplayName: e.DisplayName, Valuation: v})
	}
	return out
}
