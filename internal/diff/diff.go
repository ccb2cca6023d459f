// Package diff compares two snapshots.
//
// A nil previous snapshot means there is no history yet: both Movers and
// Changes return empty results rather than failing.
package diff

import (
	"sort"

	"github.com/rickgao/top500/internal/model"
)

// Movers returns up to topK symbols present in both snapshots, ordered by
// |RankDelta| descending, then symbol ascending. Symbols that kept their rank
// are included with a zero delta and sort last.
func Movers(prev, latest *model.Snapshot, topK int) []model.MoverRecord {
	out := []model.MoverRecord{}
	if prev == nil || latest == nil || topK <= 0 {
		return out
	}

	prevRank := ranks(prev)
	for _, e := range latest.Entries {
		p, ok := prevRank[e.Symbol]
		if !ok {
			continue
		}
		out = append(out, model.MoverRecord{
			Symbol:       e.Symbol,
			PreviousRank: p,
			NewRank:      e.Rank,
			RankDelta:    p - e.Rank,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		mi, mj := out[i].Magnitude(), out[j].Magnitude()
		if mi != mj {
			return mi > mj
		}
		return out[i].Symbol < out[j].Symbol
	})

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// Changes returns symbols that entered or exited between the snapshots, sorted.
func Changes(prev, latest *model.Snapshot) model.ChangeSet {
	cs := model.ChangeSet{Entered: []string{}, Exited: []string{}}
	if prev == nil || latest == nil {
		return cs
	}

	before := ranks(prev)
	after := ranks(latest)

	for sym := range after {
		if _, ok := before[sym]; !ok {
			cs.Entered = append(cs.Entered, sym)
		}
	}
	for sym := range before {
		if _, ok := after[sym]; !ok {
			cs.Exited = append(cs.Exited, sym)
		}
	}

	sort.Strings(cs.Entered)
	sort.Strings(cs.Exited)
	return cs
}

// ranks indexes a snapshot by symbol. The first occurrence wins.
func ranks(s *model.Snapshot) map[string]int {
	m := make(map[string]int, len(s.Entries))
	for _, e := range s.Entries {
		if _, ok := m[e.Symbol]; !ok {
			m[e.Symbol] = e.Rank
		}
	}
	return m
}
