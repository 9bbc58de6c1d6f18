package domain

// Result is the outcome of running one voting engine against a
// Scoresheet: a total order with ties plus an engine-specific
// diagnostics payload.
type Result struct {
	// SystemName identifies the voting engine that produced the result.
	SystemName string `json:"system_name"`

	// FinalRanking covers every competitor on the sheet exactly once,
	// ordered best to worst.
	FinalRanking []Placement `json:"final_ranking"`

	// Details is the engine-specific diagnostics payload: score
	// breakdowns, matrices, tiebreak traces. It is not part of the
	// ranking contract but lets callers audit why a ranking came out
	// the way it did. Each engine documents its own concrete type.
	Details any `json:"details,omitempty"`
}

// Place returns the 1-indexed rank for a competitor, or false if the
// competitor does not appear in the ranking.
func (r *Result) Place(competitor string) (int, bool) {
	for _, p := range r.FinalRanking {
		if p.Competitor == competitor {
			return p.Rank, true
		}
	}
	return 0, false
}
