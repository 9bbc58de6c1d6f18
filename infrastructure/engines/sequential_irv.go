package engines

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var _ ports.VotingEngine = (*SequentialIRV)(nil)

// SequentialIRV implements Sequential Instant Runoff Voting.
//
// It produces a full ranking by repeatedly solving "who wins 1st place
// among the remaining candidates" with IRV, removing the winner(s), and
// repeating for 2nd, 3rd, and so on.
//
// Within one IRV resolution: candidates with zero first-choice votes are
// batch-excluded on the first counting round (they would be eliminated
// one by one without changing any other count); a candidate reaching the
// majority threshold wins; otherwise the fewest-vote candidate is
// eliminated. Elimination ties between exactly two candidates go to
// head-to-head; larger ties are narrowed by recounting first-choice
// votes restricted to the tied set, recursively. When every comparison
// ends in a perfect tie, a random choice breaks the deadlock.
//
// The random fallback is the only non-deterministic step in the whole
// system. Inject a seeded rand via SequentialIRVConfig.Rand for
// reproducible results.
type SequentialIRV struct {
	cfg SequentialIRVConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// SequentialIRVConfig configures a SequentialIRV engine.
type SequentialIRVConfig struct {
	// MaxTiebreakDepth caps the restricted-recount recursion.
	// Beyond the cap the engine falls back to random choice, which
	// guarantees termination on pathological perfectly-symmetric input.
	MaxTiebreakDepth int `yaml:"max_tiebreak_depth" json:"max_tiebreak_depth" validate:"required,min=1,max=32"`

	// Rand is the source for the random tiebreak fallback. When nil,
	// a generator seeded from crypto-grade entropy is used.
	Rand *rand.Rand `yaml:"-" json:"-"`
}

// DefaultSequentialIRVConfig returns the standard configuration.
func DefaultSequentialIRVConfig() SequentialIRVConfig {
	return SequentialIRVConfig{MaxTiebreakDepth: 8}
}

// NewSequentialIRV creates a Sequential IRV engine with the given
// configuration.
func NewSequentialIRV(cfg SequentialIRVConfig) (*SequentialIRV, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(randomSeed()))
	}
	return &SequentialIRV{cfg: cfg, rng: rng}, nil
}

// Name returns the human-readable name of this voting system.
func (s *SequentialIRV) Name() string { return "Sequential IRV" }

// Description returns a short explanation of the system.
func (s *SequentialIRV) Description() string {
	return "Run Instant Runoff Voting repeatedly: find winner, remove, repeat"
}

// SequentialIRVDetails is the diagnostics payload for a Sequential IRV
// run.
type SequentialIRVDetails struct {
	// PlacementRounds records one entry per placement decision.
	PlacementRounds []IRVPlacement `json:"placement_rounds"`
}

// IRVPlacement records how one placement (or tied placement block) was
// decided.
type IRVPlacement struct {
	// Place is the 1-indexed position filled.
	Place int `json:"place"`

	// Winner is set when a single competitor took the place.
	Winner string `json:"winner,omitempty"`

	// Winners is set when a tied group shares the place.
	Winners []string `json:"winners,omitempty"`

	// Tied is true when Winners is set.
	Tied bool `json:"tied"`

	// Method describes how the place was decided: "majority",
	// "elimination", "all_tied", or "last_remaining".
	Method string `json:"method"`

	// Rounds is the sequence of internal IRV rounds.
	Rounds []IRVRound `json:"irv_rounds"`
}

// IRVRound is one counting round within a single IRV resolution.
type IRVRound struct {
	// Round is the 1-indexed round number.
	Round int `json:"round"`

	// Active lists the candidates still in the running.
	Active []string `json:"active_candidates"`

	// Votes maps each active candidate to its first-choice vote count.
	Votes map[string]int `json:"votes"`

	// MajorityNeeded is the winning threshold: floor(judges/2) + 1.
	MajorityNeeded int `json:"majority_needed"`

	// ExcludedZeroVote lists candidates batch-removed in round one for
	// having no first-choice votes.
	ExcludedZeroVote []string `json:"excluded_zero_vote,omitempty"`

	// Winner is set when the round produced a majority winner.
	Winner string `json:"winner,omitempty"`

	// Winners is set when the round ended with all candidates equal.
	Winners []string `json:"winners,omitempty"`

	// Eliminated is set when the round eliminated a candidate.
	Eliminated string `json:"eliminated,omitempty"`

	// Method is "majority", "elimination", or "all_tied".
	Method string `json:"method"`

	// Tiebreak traces the tie resolution applied this round, if any.
	Tiebreak *IRVTiebreak `json:"tiebreak,omitempty"`
}

// IRVTiebreak is the full decision trace for one round's tie.
type IRVTiebreak struct {
	// Tied is the candidate set the tie started with.
	Tied []string `json:"tied_candidates"`

	// Steps lists every method tried, in order, down to and including
	// the random fallback when reached.
	Steps []IRVTiebreakStep `json:"steps"`
}

// IRVTiebreakStep is one attempt at resolving a tie.
type IRVTiebreakStep struct {
	// Method is "preference_level", "head_to_head",
	// "restricted_recount", or "random".
	Method string `json:"method"`

	// Level is the preference depth examined for the
	// "preference_level" method (2 = second choices).
	Level int `json:"level,omitempty"`

	// Counts holds the vote counts the step compared.
	Counts map[string]int `json:"counts,omitempty"`

	// HeadToHead carries the pairwise comparison for the
	// "head_to_head" method.
	HeadToHead *HeadToHead `json:"head_to_head,omitempty"`

	// Resolved is true when the step picked a candidate to eliminate.
	Resolved bool `json:"resolved"`

	// Eliminated is the candidate the step settled on, when resolved.
	Eliminated string `json:"eliminated,omitempty"`

	// RemainingTied lists the candidates still tied after the step.
	RemainingTied []string `json:"remaining_tied,omitempty"`

	// DepthCapped is true when the random fallback was forced by the
	// recursion depth cap rather than a genuine full tie.
	DepthCapped bool `json:"depth_capped,omitempty"`
}

// Method names used in IRV diagnostics.
const (
	irvMethodMajority      = "majority"
	irvMethodElimination   = "elimination"
	irvMethodAllTied       = "all_tied"
	irvMethodLastRemaining = "last_remaining"

	irvStepPreferenceLevel   = "preference_level"
	irvStepHeadToHead        = "head_to_head"
	irvStepRestrictedRecount = "restricted_recount"
	irvStepRandom            = "random"
)

// Calculate produces a full ranking by sequential IRV: resolve 1st
// place, remove the winner(s), repeat for the remaining places.
func (s *SequentialIRV) Calculate(ctx context.Context, sheet *domain.Scoresheet) (*domain.Result, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	run := &irvRun{
		sheet:    sheet,
		rankings: make(map[string][]string, sheet.NumJudges()),
	}
	for _, judge := range sheet.Judges {
		run.rankings[judge] = sheet.JudgeRanking(judge)
	}

	remaining := append([]string(nil), sheet.Competitors...)
	var ordered []domain.RankGroup
	var placements []IRVPlacement
	place := 1

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(remaining) == 1 {
			winner := remaining[0]
			placements = append(placements, IRVPlacement{
				Place:  place,
				Winner: winner,
				Method: irvMethodLastRemaining,
				Rounds: []IRVRound{},
			})
			ordered = append(ordered, domain.Solo(winner))
			break
		}

		winners, rounds := s.runIRV(run, remaining)

		decision := IRVPlacement{Place: place, Rounds: rounds}
		if len(winners) > 1 {
			decision.Winners = winners
			decision.Tied = true
			decision.Method = irvMethodAllTied
			ordered = append(ordered, domain.RankGroup(winners))
		} else {
			decision.Winner = winners[0]
			decision.Method = irvMethodMajority
			if len(rounds) > 0 && rounds[len(rounds)-1].Winner == "" {
				decision.Method = irvMethodElimination
			}
			ordered = append(ordered, domain.Solo(winners[0]))
		}
		placements = append(placements, decision)

		for _, w := range winners {
			remaining = removeCompetitor(remaining, w)
		}
		place += len(winners)
	}

	return &domain.Result{
		SystemName:   s.Name(),
		FinalRanking: domain.BuildRanking(ordered),
		Details:      &SequentialIRVDetails{PlacementRounds: placements},
	}, nil
}

// irvRun carries per-Calculate working state: the sheet plus each
// judge's precomputed full ranking.
type irvRun struct {
	sheet    *domain.Scoresheet
	rankings map[string][]string
}

// runIRV resolves a single IRV election among the active candidates.
// It returns one winner, or the whole remaining set when every
// preference level ends in a perfect tie.
func (s *SequentialIRV) runIRV(run *irvRun, candidates []string) ([]string, []IRVRound) {
	active := append([]string(nil), candidates...)
	majority := majorityThreshold(run.sheet.NumJudges())
	var rounds []IRVRound

	for roundNum := 1; len(active) > 1; roundNum++ {
		votes := run.firstChoiceVotes(active)
		round := IRVRound{Round: roundNum, MajorityNeeded: majority}

		if roundNum == 1 {
			// Zero-vote candidates would be eliminated one by one
			// without ever changing another candidate's count, so a
			// batch removal is equivalent.
			var zeroVote []string
			for _, c := range active {
				if votes[c] == 0 {
					zeroVote = append(zeroVote, c)
				}
			}
			if len(zeroVote) > 0 && len(zeroVote) < len(active) {
				round.ExcludedZeroVote = zeroVote
				for _, c := range zeroVote {
					active = removeCompetitor(active, c)
					delete(votes, c)
				}
				if len(active) == 1 {
					round.Active = append([]string(nil), active...)
					round.Votes = votes
					round.Winner = active[0]
					round.Method = irvMethodMajority
					rounds = append(rounds, round)
					return active[:1], rounds
				}
			}
		}

		round.Active = append([]string(nil), active...)
		round.Votes = votes

		for _, c := range active {
			if votes[c] >= majority {
				round.Winner = c
				round.Method = irvMethodMajority
				rounds = append(rounds, round)
				return []string{c}, rounds
			}
		}

		minVotes := votes[active[0]]
		for _, c := range active[1:] {
			if votes[c] < minVotes {
				minVotes = votes[c]
			}
		}
		var lowest []string
		for _, c := range active {
			if votes[c] == minVotes {
				lowest = append(lowest, c)
			}
		}

		var tiebreak *IRVTiebreak
		if len(lowest) == len(active) {
			// Full tie: narrow by successive preference levels before
			// eliminating anyone.
			narrowed, steps, allEqual := run.narrowFullTie(active)
			tiebreak = &IRVTiebreak{
				Tied:  append([]string(nil), active...),
				Steps: steps,
			}
			if allEqual {
				round.Winners = append([]string(nil), active...)
				round.Method = irvMethodAllTied
				round.Tiebreak = tiebreak
				rounds = append(rounds, round)
				return active, rounds
			}
			lowest = narrowed
		}

		var eliminated string
		if len(lowest) == 1 {
			eliminated = lowest[0]
		} else {
			var steps []IRVTiebreakStep
			eliminated, steps = s.eliminationTiebreak(run, lowest)
			if tiebreak == nil {
				tiebreak = &IRVTiebreak{Tied: append([]string(nil), lowest...)}
			}
			tiebreak.Steps = append(tiebreak.Steps, steps...)
		}

		round.Eliminated = eliminated
		round.Method = irvMethodElimination
		round.Tiebreak = tiebreak
		rounds = append(rounds, round)
		active = removeCompetitor(active, eliminated)
	}

	return active, rounds
}

// firstChoiceVotes counts, per active candidate, the judges whose best
// placed active candidate it is.
func (r *irvRun) firstChoiceVotes(active []string) map[string]int {
	votes := make(map[string]int, len(active))
	inSet := make(map[string]bool, len(active))
	for _, c := range active {
		votes[c] = 0
		inSet[c] = true
	}
	for _, judge := range r.sheet.Judges {
		for _, c := range r.rankings[judge] {
			if inSet[c] {
				votes[c]++
				break
			}
		}
	}
	return votes
}

// choiceCountsAtLevel counts, per active candidate, the judges for whom
// it is the level-th choice among the active set (level 2 = second
// choice).
func (r *irvRun) choiceCountsAtLevel(active []string, level int) map[string]int {
	counts := make(map[string]int, len(active))
	inSet := make(map[string]bool, len(active))
	for _, c := range active {
		counts[c] = 0
		inSet[c] = true
	}
	for _, judge := range r.sheet.Judges {
		seen := 0
		for _, c := range r.rankings[judge] {
			if !inSet[c] {
				continue
			}
			seen++
			if seen == level {
				counts[c]++
				break
			}
		}
	}
	return counts
}

// narrowFullTie handles a round where every active candidate holds the
// same vote count. It examines successive preference levels until some
// strict subset has fewer votes than the rest; that subset becomes the
// elimination-tie set. When every level through len(active) is a perfect
// tie, allEqual is true and the caller reports the whole set as tied.
func (r *irvRun) narrowFullTie(active []string) (narrowed []string, steps []IRVTiebreakStep, allEqual bool) {
	for level := 2; level <= len(active); level++ {
		counts := r.choiceCountsAtLevel(active, level)
		step := IRVTiebreakStep{
			Method: irvStepPreferenceLevel,
			Level:  level,
			Counts: counts,
		}

		minCount := counts[active[0]]
		for _, c := range active[1:] {
			if counts[c] < minCount {
				minCount = counts[c]
			}
		}
		var fewest []string
		for _, c := range active {
			if counts[c] == minCount {
				fewest = append(fewest, c)
			}
		}

		if len(fewest) < len(active) {
			step.Resolved = true
			step.RemainingTied = fewest
			steps = append(steps, step)
			return fewest, steps, false
		}
		steps = append(steps, step)
	}
	return nil, steps, true
}

// eliminationTiebreak picks which of the tied candidates to eliminate.
// Two candidates go to head-to-head; three or more go through the
// restricted recount; perfect ties fall through to random choice.
func (s *SequentialIRV) eliminationTiebreak(run *irvRun, tied []string) (string, []IRVTiebreakStep) {
	if len(tied) == 2 {
		h2h := headToHead(run.sheet, tied[0], tied[1])
		step := IRVTiebreakStep{Method: irvStepHeadToHead, HeadToHead: &h2h}
		if h2h.Winner != "" {
			loser := tied[0]
			if h2h.Winner == tied[0] {
				loser = tied[1]
			}
			step.Resolved = true
			step.Eliminated = loser
			return loser, []IRVTiebreakStep{step}
		}
		steps := []IRVTiebreakStep{step}
		eliminated, randomStep := s.randomPick(tied, false)
		return eliminated, append(steps, randomStep)
	}
	return s.restrictedRecount(run, tied, 0, nil)
}

// restrictedRecount recounts first-choice votes among only the tied
// candidates, ignoring every other active candidate, and recurses on the
// narrowed fewest-vote subset. A recount where everyone stays equal, or
// recursion past the depth cap, falls through to random choice.
func (s *SequentialIRV) restrictedRecount(run *irvRun, tied []string, depth int, steps []IRVTiebreakStep) (string, []IRVTiebreakStep) {
	if depth >= s.cfg.MaxTiebreakDepth {
		eliminated, randomStep := s.randomPick(tied, true)
		return eliminated, append(steps, randomStep)
	}

	counts := run.firstChoiceVotes(tied)
	step := IRVTiebreakStep{Method: irvStepRestrictedRecount, Counts: counts}

	minCount := counts[tied[0]]
	for _, c := range tied[1:] {
		if counts[c] < minCount {
			minCount = counts[c]
		}
	}
	var fewest []string
	for _, c := range tied {
		if counts[c] == minCount {
			fewest = append(fewest, c)
		}
	}

	if len(fewest) == len(tied) {
		step.RemainingTied = fewest
		steps = append(steps, step)
		eliminated, randomStep := s.randomPick(tied, false)
		return eliminated, append(steps, randomStep)
	}

	if len(fewest) == 1 {
		step.Resolved = true
		step.Eliminated = fewest[0]
		return fewest[0], append(steps, step)
	}

	step.RemainingTied = fewest
	steps = append(steps, step)
	return s.restrictedRecount(run, fewest, depth+1, steps)
}

// randomPick eliminates a uniformly random member of the tied set. This
// is the only non-deterministic step in the system.
func (s *SequentialIRV) randomPick(tied []string, depthCapped bool) (string, IRVTiebreakStep) {
	s.mu.Lock()
	idx := s.rng.Intn(len(tied))
	s.mu.Unlock()

	return tied[idx], IRVTiebreakStep{
		Method:        irvStepRandom,
		Resolved:      true,
		Eliminated:    tied[idx],
		RemainingTied: append([]string(nil), tied...),
		DepthCapped:   depthCapped,
	}
}

// randomSeed derives a seed from crypto-grade entropy, falling back to
// the clock if the entropy source is unavailable.
func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
