package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rickgao/top500/internal/model"
)

func snap(symbols ...string) *model.Snapshot {
	s := &model.Snapshot{}
	for i, sym := range symbols {
		s.Entries = append(s.Entries, model.RankedEntry{Rank: i + 1, Symbol: sym})
	}
	return s
}

func TestMoversAndChanges_Example(t *testing.T) {
	prev := snap("A", "B", "C")
	latest := snap("B", "A", "D")

	movers := Movers(prev, latest, 10)
	assert.Equal(t, []model.MoverRecord{
		{Symbol: "A", PreviousRank: 1, NewRank: 2, RankDelta: -1},
		{Symbol: "B", PreviousRank: 2, NewRank: 1, RankDelta: 1},
	}, movers)

	changes := Changes(prev, latest)
	assert.Equal(t, []string{"D"}, changes.Entered)
	assert.Equal(t, []string{"C"}, changes.Exited)
}

func TestMovers_OrderAndLimit(t *testing.T) {
	prev := snap("A", "B", "C", "D", "E")
	latest := snap("E", "B", "A", "C", "D")
	// E: 5->1 (+4), A: 1->3 (-2), C: 3->4 (-1), D: 4->5 (-1), B unchanged.

	got := Movers(prev, latest, 3)
	assert.Equal(t, []model.MoverRecord{
		{Symbol: "E", PreviousRank: 5, NewRank: 1, RankDelta: 4},
		{Symbol: "A", PreviousRank: 1, NewRank: 3, RankDelta: -2},
		{Symbol: "C", PreviousRank: 3, NewRank: 4, RankDelta: -1},
	}, got)
}

func TestMovers_UnchangedSortLast(t *testing.T) {
	got := Movers(snap("A", "B", "C", "D"), snap("B", "A", "C", "D"), 10)
	assert.Equal(t, []model.MoverRecord{
		{Symbol: "A", PreviousRank: 1, NewRank: 2, RankDelta: -1},
		{Symbol: "B", PreviousRank: 2, NewRank: 1, RankDelta: 1},
		{Symbol: "C", PreviousRank: 3, NewRank: 3, RankDelta: 0},
		{Symbol: "D", PreviousRank: 4, NewRank: 4, RankDelta: 0},
	}, got)

	got = Movers(snap("A", "B"), snap("A", "B"), 10)
	assert.Len(t, got, 2)
	for _, m := range got {
		assert.Zero(t, m.RankDelta)
	}
}

func TestNoHistory(t *testing.T) {
	latest := snap("A", "B")

	assert.Empty(t, Movers(nil, latest, 10))
	assert.NotNil(t, Movers(nil, latest, 10))

	cs := Changes(nil, latest)
	assert.Empty(t, cs.Entered)
	assert.Empty(t, cs.Exited)
	assert.NotNil(t, cs.Entered)
}

func TestMovers_NonPositiveTopK(t *testing.T) {
	assert.Empty(t, Movers(snap("A", "B"), snap("B", "A"), 0))
}
