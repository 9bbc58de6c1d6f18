// Package domain contains the core types for scoresheet analysis:
// the scoresheet itself, placements, and voting results.
// The types are immutable once constructed; engines read a Scoresheet
// and produce fresh Results without mutating shared state.
package domain

import (
	"fmt"
	"sort"
)

// Scoresheet is the canonical representation of a competition's judge
// rankings. It is the sole input to every voting engine.
//
// Rankings maps judge ID to a map of competitor ID to that judge's
// 1-indexed placement of the competitor (1 = best). For a well-formed
// sheet every judge places every competitor, but engines must not assume
// a gap-free 1..N multiset per judge; callers own validity and engines
// surface missing entries as errors rather than defaulting.
type Scoresheet struct {
	// CompetitionName is a descriptive label, opaque to all engines.
	CompetitionName string `json:"competition_name"`

	// Competitors lists competitor IDs in entry order. Entry order is
	// the canonical determinism tie-break wherever an algorithm does
	// not otherwise specify an order.
	Competitors []string `json:"competitors"`

	// Judges lists judge IDs in scoresheet order.
	Judges []string `json:"judges"`

	// Rankings maps judge ID -> competitor ID -> 1-indexed placement.
	Rankings map[string]map[string]int `json:"rankings"`
}

// NumCompetitors returns the number of competitors on the sheet.
func (s *Scoresheet) NumCompetitors() int { return len(s.Competitors) }

// NumJudges returns the number of judges on the sheet.
func (s *Scoresheet) NumJudges() int { return len(s.Judges) }

// Placement returns the 1-indexed placement the given judge assigned to
// the given competitor. A missing entry is a data defect and is returned
// as a *PlacementError rather than a silent default, since defaulting
// would misrank.
func (s *Scoresheet) Placement(judge, competitor string) (int, error) {
	byCompetitor, ok := s.Rankings[judge]
	if !ok {
		return 0, &PlacementError{Judge: judge, Competitor: competitor, Err: ErrUnknownJudge}
	}
	placement, ok := byCompetitor[competitor]
	if !ok {
		return 0, &PlacementError{Judge: judge, Competitor: competitor, Err: ErrMissingPlacement}
	}
	return placement, nil
}

// CompetitorPlacements returns the competitor's placements across all
// judges, in judge order.
func (s *Scoresheet) CompetitorPlacements(competitor string) ([]int, error) {
	placements := make([]int, 0, len(s.Judges))
	for _, judge := range s.Judges {
		p, err := s.Placement(judge, competitor)
		if err != nil {
			return nil, err
		}
		placements = append(placements, p)
	}
	return placements, nil
}

// JudgeRanking returns the competitors ordered best-to-worst according to
// the given judge's placements. Competitors with equal placements keep
// their relative entry order, so the ordering is stable and identical
// for every engine that needs "a judge's ranking".
//
// JudgeRanking requires a sheet that has passed Validate; on an
// unvalidated sheet, missing placements would sort as zero.
func (s *Scoresheet) JudgeRanking(judge string) []string {
	byCompetitor := s.Rankings[judge]
	ranked := make([]string, len(s.Competitors))
	copy(ranked, s.Competitors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return byCompetitor[ranked[i]] < byCompetitor[ranked[j]]
	})
	return ranked
}

// Validate checks that the sheet is structurally sound: non-empty
// competitor and judge lists, unique IDs, and a placement for every
// judge/competitor pair. It returns a *ValidationError describing every
// problem found, or nil.
func (s *Scoresheet) Validate() error {
	verr := NewValidationError("scoresheet")

	if len(s.Competitors) == 0 {
		verr.AddError("no competitors")
	}
	if len(s.Judges) == 0 {
		verr.AddError("no judges")
	}

	seen := make(map[string]struct{}, len(s.Competitors))
	for _, c := range s.Competitors {
		if _, dup := seen[c]; dup {
			verr.AddError(fmt.Sprintf("duplicate competitor %q", c))
		}
		seen[c] = struct{}{}
	}

	seenJudges := make(map[string]struct{}, len(s.Judges))
	for _, j := range s.Judges {
		if _, dup := seenJudges[j]; dup {
			verr.AddError(fmt.Sprintf("duplicate judge %q", j))
		}
		seenJudges[j] = struct{}{}
	}

	for _, judge := range s.Judges {
		byCompetitor, ok := s.Rankings[judge]
		if !ok {
			verr.AddError(fmt.Sprintf("judge %q has no rankings", judge))
			continue
		}
		for _, competitor := range s.Competitors {
			placement, ok := byCompetitor[competitor]
			if !ok {
				verr.AddError(fmt.Sprintf("judge %q has no placement for %q", judge, competitor))
				continue
			}
			if placement < 1 {
				verr.AddError(fmt.Sprintf("judge %q placed %q at %d, placements are 1-indexed", judge, competitor, placement))
			}
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
