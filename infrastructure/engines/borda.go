package engines

import (
	"context"
	"sort"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var _ ports.VotingEngine = (*BordaCount)(nil)

// BordaCount implements the Borda count voting system.
//
// Each judge awards points by rank position: k-1 for their top choice,
// k-2 for second, down to 0 for last, where k is the number of
// competitors in play. Points are summed across judges and competitors
// are ranked by total, highest first.
//
// Ties are broken by recursive relative Borda: scores are recomputed
// using only the tied competitors' relative order per judge, re-ranking
// the tied set 0..k-1 among themselves and ignoring everyone else.
// Sub-groups that remain tied recurse with an incremented level counter.
// A group whose relative scores are all equal is an unresolved tie and
// is reported as a single tied group.
type BordaCount struct{}

// NewBordaCount creates a Borda count engine.
func NewBordaCount() *BordaCount { return &BordaCount{} }

// Name returns the human-readable name of this voting system.
func (b *BordaCount) Name() string { return "Borda Count" }

// Description returns a short explanation of the system.
func (b *BordaCount) Description() string {
	return "Points-based system: 1st = n-1 pts, 2nd = n-2 pts, ..., last = 0 pts"
}

// BordaDetails is the diagnostics payload for a Borda count run.
type BordaDetails struct {
	// Scores maps each competitor to its total Borda score.
	Scores map[string]int `json:"scores"`

	// Breakdowns maps each competitor to its per-judge point breakdown.
	Breakdowns map[string]JudgePoints `json:"breakdowns"`

	// MaxPossible is the highest achievable score: (n-1) * num judges.
	MaxPossible int `json:"max_possible"`

	// Tiebreaks records one entry per tiebreak invocation, in the
	// order they were applied.
	Tiebreaks []BordaTiebreak `json:"tiebreaks,omitempty"`
}

// JudgePoints pairs the judge list with the points a competitor earned
// from each judge, index-aligned.
type JudgePoints struct {
	Judges []string `json:"judges"`
	Points []int    `json:"points"`
}

// BordaTiebreak records one invocation of the relative-Borda tiebreak.
type BordaTiebreak struct {
	// TiedCompetitors is the group that shared a score.
	TiedCompetitors []string `json:"tied_competitors"`

	// Score is the score at which the group tied. For nested
	// invocations this is the relative score from the level above.
	Score int `json:"score"`

	// Level is the recursion depth, starting at 1.
	Level int `json:"level"`

	// Method is "recursive-borda" when the relative recount made
	// progress, or "unresolved" when the group stayed fully tied.
	Method string `json:"method"`

	// RelativeScores holds the recomputed scores among the tied set.
	// Empty for unresolved ties.
	RelativeScores map[string]int `json:"relative_scores,omitempty"`

	// Breakdowns holds the per-judge points used at this level.
	// Empty for unresolved ties.
	Breakdowns map[string]JudgePoints `json:"breakdowns,omitempty"`

	// RemainingTied lists the group members still tied when the
	// method is "unresolved".
	RemainingTied []string `json:"remaining_tied,omitempty"`
}

// Tiebreak method names used in BordaTiebreak.Method.
const (
	bordaMethodRecursive  = "recursive-borda"
	bordaMethodUnresolved = "unresolved"
)

// Calculate ranks the scoresheet by total Borda score, applying the
// recursive relative-Borda tiebreak to equal-score groups.
func (b *BordaCount) Calculate(ctx context.Context, sheet *domain.Scoresheet) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	scores, breakdowns := bordaScores(sheet, sheet.Competitors)

	ordered := make([]domain.RankGroup, 0, sheet.NumCompetitors())
	var tiebreaks []BordaTiebreak
	for _, group := range groupByScoreDesc(sheet.Competitors, scores) {
		if len(group.members) == 1 {
			ordered = append(ordered, domain.Solo(group.members[0]))
			continue
		}
		resolved, info := b.breakTies(sheet, group.members, 1)
		ordered = append(ordered, resolved...)
		for i := range info {
			// Level-1 entries tie at the total score; nested levels
			// already carry their relative score.
			if info[i].Level == 1 && info[i].Score == 0 {
				info[i].Score = group.score
			}
		}
		tiebreaks = append(tiebreaks, info...)
	}

	details := &BordaDetails{
		Scores:      scores,
		Breakdowns:  breakdownsByCompetitor(sheet.Judges, sheet.Competitors, breakdowns),
		MaxPossible: (sheet.NumCompetitors() - 1) * sheet.NumJudges(),
		Tiebreaks:   tiebreaks,
	}

	return &domain.Result{
		SystemName:   b.Name(),
		FinalRanking: domain.BuildRanking(ordered),
		Details:      details,
	}, nil
}

// breakTies orders a group of competitors with equal scores by
// recomputing Borda scores over only their relative order per judge,
// recursing on sub-groups that remain tied.
func (b *BordaCount) breakTies(sheet *domain.Scoresheet, tied []string, level int) ([]domain.RankGroup, []BordaTiebreak) {
	if len(tied) <= 1 {
		groups := make([]domain.RankGroup, 0, len(tied))
		for _, c := range tied {
			groups = append(groups, domain.Solo(c))
		}
		return groups, nil
	}

	relativeScores, breakdowns := bordaScores(sheet, tied)
	scoreGroups := groupByScoreDesc(tied, relativeScores)

	if len(scoreGroups) == 1 {
		// No progress: the group stays tied at this rank.
		return []domain.RankGroup{domain.RankGroup(tied)}, []BordaTiebreak{{
			TiedCompetitors: tied,
			Level:           level,
			Method:          bordaMethodUnresolved,
			RemainingTied:   tied,
		}}
	}

	info := []BordaTiebreak{{
		TiedCompetitors: tied,
		Level:           level,
		Method:          bordaMethodRecursive,
		RelativeScores:  relativeScores,
		Breakdowns:      breakdownsByCompetitor(sheet.Judges, tied, breakdowns),
	}}

	var resolved []domain.RankGroup
	for _, group := range scoreGroups {
		if len(group.members) == 1 {
			resolved = append(resolved, domain.Solo(group.members[0]))
			continue
		}
		subResolved, subInfo := b.breakTies(sheet, group.members, level+1)
		resolved = append(resolved, subResolved...)
		for i := range subInfo {
			if subInfo[i].Level == level+1 && subInfo[i].Score == 0 {
				subInfo[i].Score = group.score
			}
		}
		info = append(info, subInfo...)
	}

	return resolved, info
}

// bordaScores computes Borda scores for a subset of competitors using
// each judge's relative ordering of the subset: k-1 points for the
// judge's best of the subset down to 0 for their worst, where k is the
// subset size. It returns total scores and per-judge point breakdowns
// in judge order.
func bordaScores(sheet *domain.Scoresheet, competitors []string) (map[string]int, map[string][]int) {
	k := len(competitors)
	scores := make(map[string]int, k)
	breakdowns := make(map[string][]int, k)
	for _, c := range competitors {
		scores[c] = 0
		breakdowns[c] = make([]int, 0, sheet.NumJudges())
	}

	for _, judge := range sheet.Judges {
		ranked := relativeRanking(sheet, judge, competitors)
		for position, competitor := range ranked {
			points := k - 1 - position
			scores[competitor] += points
			breakdowns[competitor] = append(breakdowns[competitor], points)
		}
	}
	return scores, breakdowns
}

// scoreGroup is a set of competitors sharing one score, in entry order.
type scoreGroup struct {
	score   int
	members []string
}

// groupByScoreDesc groups competitors by score, highest score first,
// preserving entry order within each group.
func groupByScoreDesc(competitors []string, scores map[string]int) []scoreGroup {
	byScore := make(map[int][]string)
	distinct := make([]int, 0)
	for _, c := range competitors {
		s := scores[c]
		if _, seen := byScore[s]; !seen {
			distinct = append(distinct, s)
		}
		byScore[s] = append(byScore[s], c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(distinct)))

	groups := make([]scoreGroup, 0, len(distinct))
	for _, s := range distinct {
		groups = append(groups, scoreGroup{score: s, members: byScore[s]})
	}
	return groups
}

// breakdownsByCompetitor pairs each competitor's per-judge points with
// the judge list for the diagnostics payload.
func breakdownsByCompetitor(judges, competitors []string, points map[string][]int) map[string]JudgePoints {
	out := make(map[string]JudgePoints, len(competitors))
	for _, c := range competitors {
		out[c] = JudgePoints{Judges: judges, Points: points[c]}
	}
	return out
}
