// Package engines provides the voting systems that implement the
// ports.VotingEngine interface: Borda count, Relative Placement
// (the Skating System), the Schulze method, and Sequential IRV.
// All engines consume the same scoresheet and the same shared judge
// ordering, so their outcomes are directly comparable.
package engines

import (
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/scrutineer-app/scrutineer/internal/domain"
)

// Package-level validator instance for engine configuration validation.
var validate = validator.New()

// majorityThreshold returns the smallest judge count that constitutes a
// majority: floor(m/2) + 1.
func majorityThreshold(numJudges int) int { return numJudges/2 + 1 }

// HeadToHead records a pairwise comparison between two competitors:
// how many judges placed each one strictly better than the other.
type HeadToHead struct {
	// Candidates are the two competitors compared, in entry order.
	Candidates []string `json:"candidates"`

	// Counts maps each candidate to the number of judges preferring it.
	Counts map[string]int `json:"counts"`

	// Winner is the candidate preferred by more judges, or empty when
	// the comparison splits evenly.
	Winner string `json:"winner,omitempty"`
}

// headToHead compares two competitors across all judges. A judge prefers
// whichever of the two they placed strictly lower (better).
func headToHead(sheet *domain.Scoresheet, a, b string) HeadToHead {
	aBetter := 0
	for _, judge := range sheet.Judges {
		if sheet.Rankings[judge][a] < sheet.Rankings[judge][b] {
			aBetter++
		}
	}
	// Judges placing the pair equal count toward b, matching the
	// skating convention for this comparison.
	bBetter := sheet.NumJudges() - aBetter

	h2h := HeadToHead{
		Candidates: []string{a, b},
		Counts:     map[string]int{a: aBetter, b: bBetter},
	}
	switch {
	case aBetter > bBetter:
		h2h.Winner = a
	case bBetter > aBetter:
		h2h.Winner = b
	}
	return h2h
}

// relativeRanking orders the given competitors by a judge's placements,
// preserving entry order among equal placements. The subset must already
// be in entry order for the tie-break to hold, which is the case for
// every slice the engines derive from Scoresheet.Competitors.
func relativeRanking(sheet *domain.Scoresheet, judge string, competitors []string) []string {
	byCompetitor := sheet.Rankings[judge]
	ranked := make([]string, len(competitors))
	copy(ranked, competitors)
	// Stable sort keeps entry order for equal placements.
	sort.SliceStable(ranked, func(i, j int) bool {
		return byCompetitor[ranked[i]] < byCompetitor[ranked[j]]
	})
	return ranked
}

// removeCompetitor returns a copy of list without the named competitor,
// preserving order.
func removeCompetitor(list []string, competitor string) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		if c != competitor {
			out = append(out, c)
		}
	}
	return out
}

// containsCompetitor reports whether list contains the named competitor.
func containsCompetitor(list []string, competitor string) bool {
	for _, c := range list {
		if c == competitor {
			return true
		}
	}
	return false
}
