package engines

import (
	"context"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var _ ports.VotingEngine = (*RelativePlacement)(nil)

// RelativePlacement implements the Relative Placement voting system,
// also known as the Skating System. It is the standard tabulation method
// for West Coast Swing competitions.
//
// A competitor earns a placement once a majority of judges rank them at
// that place or better. When several competitors reach a majority at the
// same cutoff, tiebreakers are applied in order:
//
//  1. Greater majority: more judges at the cutoff or better.
//  2. Quality of majority: lower sum of the placements making up the
//     majority.
//  3. Head-to-head comparison, for exactly two remaining candidates.
//
// A tie among three or more candidates that survives every cutoff is
// unresolved and the candidates share the position.
type RelativePlacement struct{}

// NewRelativePlacement creates a Relative Placement engine.
func NewRelativePlacement() *RelativePlacement { return &RelativePlacement{} }

// Name returns the human-readable name of this voting system.
func (rp *RelativePlacement) Name() string { return "Relative Placement" }

// Description returns a short explanation of the system.
func (rp *RelativePlacement) Description() string {
	return "WCS standard: place when majority of judges rank you at that place or better"
}

// RelativePlacementDetails is the diagnostics payload for a Relative
// Placement run.
type RelativePlacementDetails struct {
	// MajorityThreshold is floor(num judges / 2) + 1.
	MajorityThreshold int `json:"majority_threshold"`

	// CumulativeCounts maps each competitor to its cumulative count
	// array: entry p (1-indexed) is the number of judges ranking the
	// competitor at place p or better. Index 0 is unused.
	CumulativeCounts map[string][]int `json:"cumulative_counts"`

	// Rounds records one entry per target place, in placement order.
	Rounds []PlacementRound `json:"rounds"`
}

// PlacementRound records the decision for one target place.
type PlacementRound struct {
	// TargetPlace is the 1-indexed position being filled.
	TargetPlace int `json:"target_place"`

	// Candidates is the majority group the place was contested by.
	Candidates []string `json:"candidates"`

	// MajorityNeeded is the majority threshold in effect.
	MajorityNeeded int `json:"majority_needed"`

	// Winner is set when a single competitor took the place.
	Winner string `json:"winner,omitempty"`

	// Winners is set when the place ended as an unresolved tie.
	Winners []string `json:"winners,omitempty"`

	// Tied is true when Winners is set.
	Tied bool `json:"tied"`

	// Resolution describes how the place was decided.
	Resolution RPResolution `json:"resolution"`
}

// RPResolution captures the tiebreak cascade for one placement decision.
type RPResolution struct {
	// Method is the rule that decided the place: "majority",
	// "greater_majority", "quality_of_majority", "head_to_head",
	// "unresolved_tie", or "last_remaining".
	Method string `json:"method"`

	// FinalCutoff is the cutoff at which the place was decided.
	// Zero when the cascade exhausted all cutoffs without resolving.
	FinalCutoff int `json:"final_cutoff,omitempty"`

	// CutoffProgression logs every cutoff examined.
	CutoffProgression []CutoffStep `json:"cutoff_progression"`

	// HeadToHead carries the pairwise comparison when Method is
	// "head_to_head".
	HeadToHead *HeadToHead `json:"head_to_head,omitempty"`
}

// CutoffStep is the state of the tiebreak cascade at one cutoff.
type CutoffStep struct {
	// Cutoff is the place-or-better threshold examined.
	Cutoff int `json:"cutoff"`

	// Counts maps each candidate to its cumulative count at the cutoff.
	Counts map[string]int `json:"counts"`

	// WithMajority lists candidates meeting the majority threshold.
	WithMajority []string `json:"with_majority"`

	// QualityScores maps candidates to their quality-of-majority sums
	// when that tiebreaker was evaluated at this cutoff.
	QualityScores map[string]int `json:"quality_scores,omitempty"`

	// Tiebreaker names the rule that resolved the place at this
	// cutoff, if any.
	Tiebreaker string `json:"tiebreaker,omitempty"`

	// Result is "no_majority", "single_majority", or
	// "multiple_majority".
	Result string `json:"result"`
}

// Resolution method names used in RPResolution.Method.
const (
	rpMethodMajority        = "majority"
	rpMethodGreaterMajority = "greater_majority"
	rpMethodQuality         = "quality_of_majority"
	rpMethodHeadToHead      = "head_to_head"
	rpMethodUnresolved      = "unresolved_tie"
	rpMethodLastRemaining   = "last_remaining"
)

// Calculate fills placements from 1st to last using majority cutoffs and
// the Skating System tiebreak cascade.
func (rp *RelativePlacement) Calculate(ctx context.Context, sheet *domain.Scoresheet) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	n := sheet.NumCompetitors()
	limit := maxPlacement(sheet)
	majority := majorityThreshold(sheet.NumJudges())
	cumCounts := cumulativeCounts(sheet)

	var ordered []domain.RankGroup
	var rounds []PlacementRound
	placed := 0
	unplaced := make(map[string]struct{}, n)
	for _, c := range sheet.Competitors {
		unplaced[c] = struct{}{}
	}

	// Resolve every competitor holding a majority at the current cutoff
	// before advancing it: a tiebreak loser who already has majority here
	// must be placed before anyone who only reaches majority at a later
	// cutoff.
	for cutoff := 1; cutoff <= limit && len(unplaced) > 0; cutoff++ {
		var withMajority []string
		for _, c := range sheet.Competitors {
			if _, open := unplaced[c]; open && cumCounts[c][cutoff] >= majority {
				withMajority = append(withMajority, c)
			}
		}

		for len(withMajority) > 0 {
			round := PlacementRound{
				TargetPlace:    placed + 1,
				Candidates:     append([]string(nil), withMajority...),
				MajorityNeeded: majority,
			}

			if len(withMajority) == 1 {
				winner := withMajority[0]
				round.Winner = winner
				round.Resolution = RPResolution{
					Method:      rpMethodMajority,
					FinalCutoff: cutoff,
					CutoffProgression: []CutoffStep{{
						Cutoff:       cutoff,
						Counts:       map[string]int{winner: cumCounts[winner][cutoff]},
						WithMajority: []string{winner},
						Result:       "single_majority",
					}},
				}
				ordered = append(ordered, domain.Solo(winner))
				placed++
				delete(unplaced, winner)
				withMajority = nil
			} else {
				winners, resolution := rp.resolvePlace(sheet, withMajority, cutoff, majority, cumCounts)
				round.Resolution = resolution

				if len(winners) > 1 {
					// Unresolved tie: the whole group shares the place.
					round.Winners = winners
					round.Tied = true
					ordered = append(ordered, domain.RankGroup(winners))
					placed += len(winners)
					for _, w := range winners {
						delete(unplaced, w)
						withMajority = removeCompetitor(withMajority, w)
					}
				} else {
					winner := winners[0]
					round.Winner = winner
					ordered = append(ordered, domain.Solo(winner))
					placed++
					delete(unplaced, winner)
					withMajority = removeCompetitor(withMajority, winner)
				}
			}

			rounds = append(rounds, round)
		}
	}

	details := &RelativePlacementDetails{
		MajorityThreshold: majority,
		CumulativeCounts:  cumCounts,
		Rounds:            rounds,
	}

	return &domain.Result{
		SystemName:   rp.Name(),
		FinalRanking: domain.BuildRanking(ordered),
		Details:      details,
	}, nil
}

// maxPlacement returns the highest placement any judge assigned, never
// less than the competitor count. Judges may leave gaps that push a
// placement past the competitor count; the cutoff sweep has to reach it
// or that competitor would never accumulate a majority.
func maxPlacement(sheet *domain.Scoresheet) int {
	limit := sheet.NumCompetitors()
	for _, judge := range sheet.Judges {
		for _, placement := range sheet.Rankings[judge] {
			if placement > limit {
				limit = placement
			}
		}
	}
	return limit
}

// cumulativeCounts precomputes, per competitor, the number of judges
// ranking the competitor at place p or better for every p from 1
// through the sheet's maximum placement. Returned slices share that
// length + 1 with index 0 unused.
func cumulativeCounts(sheet *domain.Scoresheet) map[string][]int {
	limit := maxPlacement(sheet)
	cum := make(map[string][]int, sheet.NumCompetitors())

	for _, competitor := range sheet.Competitors {
		counts := make([]int, limit+1)
		for _, judge := range sheet.Judges {
			if placement := sheet.Rankings[judge][competitor]; placement >= 1 {
				counts[placement]++
			}
		}
		cumulative := make([]int, limit+1)
		running := 0
		for p := 1; p <= limit; p++ {
			running += counts[p]
			cumulative[p] = running
		}
		cum[competitor] = cumulative
	}
	return cum
}

// resolvePlace decides which of the candidates takes the next open
// place, applying the tiebreak cascade from startCutoff and advancing
// the cutoff while ties persist. It returns a single winner, or the
// remaining candidates when the tie is genuinely unresolved.
func (rp *RelativePlacement) resolvePlace(
	sheet *domain.Scoresheet,
	candidates []string,
	startCutoff, majority int,
	cumCounts map[string][]int,
) ([]string, RPResolution) {
	limit := maxPlacement(sheet)
	resolution := RPResolution{CutoffProgression: []CutoffStep{}}
	candidates = append([]string(nil), candidates...)

	for cutoff := startCutoff; len(candidates) > 1 && cutoff <= limit; cutoff++ {
		step := CutoffStep{
			Cutoff: cutoff,
			Counts: make(map[string]int, len(candidates)),
		}
		for _, c := range candidates {
			step.Counts[c] = cumCounts[c][cutoff]
		}

		var withMajority []string
		for _, c := range candidates {
			if cumCounts[c][cutoff] >= majority {
				withMajority = append(withMajority, c)
			}
		}
		step.WithMajority = withMajority

		if len(withMajority) == 0 {
			step.Result = "no_majority"
			resolution.CutoffProgression = append(resolution.CutoffProgression, step)
			continue
		}

		if len(withMajority) == 1 {
			step.Result = "single_majority"
			resolution.CutoffProgression = append(resolution.CutoffProgression, step)
			resolution.Method = rpMethodMajority
			resolution.FinalCutoff = cutoff
			return withMajority[:1], resolution
		}

		candidates = withMajority
		step.Result = "multiple_majority"

		// Tiebreaker 1: greater majority, the strictly highest count at
		// this cutoff.
		maxCount := 0
		for _, c := range candidates {
			if cumCounts[c][cutoff] > maxCount {
				maxCount = cumCounts[c][cutoff]
			}
		}
		var bestCount []string
		for _, c := range candidates {
			if cumCounts[c][cutoff] == maxCount {
				bestCount = append(bestCount, c)
			}
		}
		if len(bestCount) == 1 {
			step.Tiebreaker = rpMethodGreaterMajority
			resolution.CutoffProgression = append(resolution.CutoffProgression, step)
			resolution.Method = rpMethodGreaterMajority
			resolution.FinalCutoff = cutoff
			return bestCount, resolution
		}
		candidates = bestCount

		// Tiebreaker 2: quality of majority, the lower sum of the
		// placements making up the majority.
		quality := make(map[string]int, len(candidates))
		for _, c := range candidates {
			sum := 0
			for _, judge := range sheet.Judges {
				if p := sheet.Rankings[judge][c]; p <= cutoff {
					sum += p
				}
			}
			quality[c] = sum
		}
		step.QualityScores = quality

		minQuality := quality[candidates[0]]
		for _, c := range candidates[1:] {
			if quality[c] < minQuality {
				minQuality = quality[c]
			}
		}
		var bestQuality []string
		for _, c := range candidates {
			if quality[c] == minQuality {
				bestQuality = append(bestQuality, c)
			}
		}
		if len(bestQuality) == 1 {
			step.Tiebreaker = rpMethodQuality
			resolution.CutoffProgression = append(resolution.CutoffProgression, step)
			resolution.Method = rpMethodQuality
			resolution.FinalCutoff = cutoff
			return bestQuality, resolution
		}

		candidates = bestQuality
		resolution.CutoffProgression = append(resolution.CutoffProgression, step)
	}

	if len(candidates) == 2 {
		// Head-to-head applies to exactly two candidates only.
		h2h := headToHead(sheet, candidates[0], candidates[1])
		resolution.Method = rpMethodHeadToHead
		resolution.HeadToHead = &h2h
		if h2h.Winner != "" {
			return []string{h2h.Winner}, resolution
		}
		return candidates, resolution
	}

	if len(candidates) > 2 {
		resolution.Method = rpMethodUnresolved
		return candidates, resolution
	}

	resolution.Method = rpMethodLastRemaining
	return candidates, resolution
}
