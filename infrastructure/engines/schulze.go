package engines

import (
	"context"
	"sort"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var _ ports.VotingEngine = (*SchulzeMethod)(nil)

// SchulzeMethod implements the Schulze voting method, a Condorcet method
// that ranks by "beatpath" strengths and therefore handles cyclic
// preferences gracefully.
//
// Algorithm:
//  1. Build the pairwise matrix d[i][j] = judges ranking i strictly
//     better than j.
//  2. Compute strongest-path strengths with a Floyd-Warshall variant.
//  3. i beats j iff p[i][j] > p[j][i]; equal strengths count as half a
//     win for each side.
//  4. Rank by win count; break ties by winning beatpath sum, then total
//     beatpath sum. Groups equal on all three are genuine ties.
//
// The relaxation is O(n^3) in the competitor count and dominates the
// cost; all judge scanning happens before it.
type SchulzeMethod struct{}

// NewSchulzeMethod creates a Schulze method engine.
func NewSchulzeMethod() *SchulzeMethod { return &SchulzeMethod{} }

// Name returns the human-readable name of this voting system.
func (sm *SchulzeMethod) Name() string { return "Schulze Method" }

// Description returns a short explanation of the system.
func (sm *SchulzeMethod) Description() string {
	return "Condorcet method using beatpath strengths to handle cyclic preferences"
}

// Tiebreak levels reported in SchulzeDetails.TiebreakUsed.
const (
	schulzeTiebreakNone    = "none"
	schulzeTiebreakWinning = "winning"
	schulzeTiebreakTotal   = "total"
)

// SchulzeDetails is the diagnostics payload for a Schulze method run.
type SchulzeDetails struct {
	// PairwisePreferences is the d matrix: PairwisePreferences[a][b]
	// is the number of judges preferring a over b.
	PairwisePreferences map[string]map[string]int `json:"pairwise_preferences"`

	// PathStrengths is the p matrix of strongest-path strengths.
	PathStrengths map[string]map[string]int `json:"path_strengths"`

	// Wins maps each competitor to its Schulze win count, counting
	// path-strength ties as half a win.
	Wins map[string]float64 `json:"schulze_wins"`

	// Ties lists the groups that remain tied after all tiebreaks.
	Ties [][]string `json:"ties"`

	// TiebreakUsed is the deepest tiebreak level that was needed:
	// "none", "winning", or "total".
	TiebreakUsed string `json:"tiebreak_used"`

	// WinningBeatpathSums holds, per competitor, the sum of outgoing
	// path strengths over pairs it beats. Present when a tiebreak was
	// used.
	WinningBeatpathSums map[string]int `json:"winning_beatpath_sums,omitempty"`

	// TotalBeatpathSums holds, per competitor, the sum of all outgoing
	// path strengths. Present when the total-level tiebreak was used.
	TotalBeatpathSums map[string]int `json:"total_beatpath_sums,omitempty"`
}

// Calculate ranks the scoresheet by Schulze win counts with beatpath-sum
// tiebreaks.
func (sm *SchulzeMethod) Calculate(ctx context.Context, sheet *domain.Scoresheet) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	competitors := sheet.Competitors
	n := len(competitors)
	index := make(map[string]int, n)
	for i, c := range competitors {
		index[c] = i
	}

	// Pairwise preference matrix from each judge's full ordering.
	d := newMatrix(n)
	for _, judge := range sheet.Judges {
		ranking := sheet.JudgeRanking(judge)
		for i, better := range ranking {
			for _, worse := range ranking[i+1:] {
				d[index[better]][index[worse]]++
			}
		}
	}

	// Path strengths seeded with direct defeats (winning votes).
	p := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && d[i][j] > d[j][i] {
				p[i][j] = d[i][j]
			}
		}
	}

	// Floyd-Warshall strongest paths. The intermediate node k must be
	// the outer loop.
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if i == k {
				continue
			}
			for j := 0; j < n; j++ {
				if j == i || j == k {
					continue
				}
				viaK := min(p[i][k], p[k][j])
				if viaK > p[i][j] {
					p[i][j] = viaK
				}
			}
		}
	}

	// Win counts: a full win per beaten opponent, half per
	// path-strength tie.
	wins := make(map[string]float64, n)
	winningSums := make(map[string]int, n)
	totalSums := make(map[string]int, n)
	for i, c := range competitors {
		w := 0.0
		winning := 0
		total := 0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			switch {
			case p[i][j] > p[j][i]:
				w++
				winning += p[i][j]
			case p[i][j] == p[j][i]:
				w += 0.5
			}
			total += p[i][j]
		}
		wins[c] = w
		winningSums[c] = winning
		totalSums[c] = total
	}

	sorted := make([]string, n)
	copy(sorted, competitors)
	sort.SliceStable(sorted, func(a, b int) bool {
		ca, cb := sorted[a], sorted[b]
		if wins[ca] != wins[cb] {
			return wins[ca] > wins[cb]
		}
		if winningSums[ca] != winningSums[cb] {
			return winningSums[ca] > winningSums[cb]
		}
		return totalSums[ca] > totalSums[cb]
	})

	// Group competitors equal on all three keys; such groups are
	// genuine ties.
	var ordered []domain.RankGroup
	var ties [][]string
	for i := 0; i < n; {
		j := i + 1
		for j < n &&
			wins[sorted[j]] == wins[sorted[i]] &&
			winningSums[sorted[j]] == winningSums[sorted[i]] &&
			totalSums[sorted[j]] == totalSums[sorted[i]] {
			j++
		}
		group := sorted[i:j]
		ordered = append(ordered, domain.RankGroup(group))
		if len(group) > 1 {
			ties = append(ties, group)
		}
		i = j
	}

	tiebreakUsed := schulzeTiebreakLevel(competitors, wins, winningSums, totalSums)

	details := &SchulzeDetails{
		PairwisePreferences: matrixByName(competitors, d),
		PathStrengths:       matrixByName(competitors, p),
		Wins:                wins,
		Ties:                ties,
		TiebreakUsed:        tiebreakUsed,
	}
	if tiebreakUsed != schulzeTiebreakNone {
		details.WinningBeatpathSums = winningSums
	}
	if tiebreakUsed == schulzeTiebreakTotal {
		details.TotalBeatpathSums = totalSums
	}

	return &domain.Result{
		SystemName:   sm.Name(),
		FinalRanking: domain.BuildRanking(ordered),
		Details:      details,
	}, nil
}

// schulzeTiebreakLevel reports the deepest tiebreak level any pair of
// competitors needed: "winning" when equal win counts were separated by
// winning beatpath sums, "total" when winning sums also tied.
func schulzeTiebreakLevel(
	competitors []string,
	wins map[string]float64,
	winningSums, totalSums map[string]int,
) string {
	level := schulzeTiebreakNone
	for i, a := range competitors {
		for _, b := range competitors[i+1:] {
			if wins[a] != wins[b] {
				continue
			}
			if winningSums[a] != winningSums[b] {
				if level == schulzeTiebreakNone {
					level = schulzeTiebreakWinning
				}
				continue
			}
			if totalSums[a] != totalSums[b] {
				level = schulzeTiebreakTotal
			}
		}
	}
	return level
}

// newMatrix allocates an n x n zero matrix.
func newMatrix(n int) [][]int {
	m := make([][]int, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	return m
}

// matrixByName converts an index-based matrix to nested maps keyed by
// competitor name for the diagnostics payload.
func matrixByName(competitors []string, m [][]int) map[string]map[string]int {
	out := make(map[string]map[string]int, len(competitors))
	for i, a := range competitors {
		row := make(map[string]int, len(competitors))
		for j, b := range competitors {
			row[b] = m[i][j]
		}
		out[a] = row
	}
	return out
}
