package model

// -----------------------------------------------------------------------------
// Pipeline Types
// -----------------------------------------------------------------------------

// UniverseEntry is one candidate security produced by the lister.
type UniverseEntry struct {
	Symbol      string // Upstream ticker, unique within a run
	DisplayName string // Company name; falls back to Symbol
}

// ValuationRecord attaches a valuation to a symbol.
// Only finite, positive valuations are ever materialised.
type ValuationRecord struct {
	Symbol    string
	Valuation float64
}

// Valued is a universe entry joined with its valuation. It is the ranker's input.
type Valued struct {
	Symbol      string
	DisplayName string
	Valuation   float64
}

// -----------------------------------------------------------------------------
// Snapshot Types
// -----------------------------------------------------------------------------

// RankedEntry is one row of a persisted ranking.
type RankedEntry struct {
	Rank        int     `json:"rank"`
	Symbol      string  `json:"ticker"`
	DisplayName string  `json:"name"`
	Valuation   float64 `json:"marketCap"`
}

// Snapshot is one dated, immutable ranking.
type Snapshot struct {
	Date    Date
	Entries []RankedEntry
}

// -----------------------------------------------------------------------------
// Derived Types
// -----------------------------------------------------------------------------

// MoverRecord describes the rank movement of a symbol present in two snapshots.
// RankDelta is positive when the symbol moved up (its rank number decreased).
type MoverRecord struct {
	Symbol       string `json:"ticker"`
	PreviousRank int    `json:"prevRank"`
	NewRank      int    `json:"newRank"`
	RankDelta    int    `json:"rankDelta"`
}

// Magnitude returns |RankDelta|.
func (m MoverRecord) Magnitude() int {
	if m.RankDelta < 0 {
		return -m.RankDelta
	}
	return m.RankDelta
}

// ChangeSet holds set-membership changes between two snapshots.
type ChangeSet struct {
	Entered []string `json:"entered"`
	Exited  []string `json:"exited"`
}
