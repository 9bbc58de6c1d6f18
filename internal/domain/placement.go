package domain

// Placement is one competitor's position in a final ranking.
// Tied competitors share a rank value and the next distinct position is
// previous rank + group size, so ranks count positions, not places: a
// 2-way tie at rank 1 pushes the next competitor to rank 3.
type Placement struct {
	// Competitor is the competitor's ID.
	Competitor string `json:"competitor"`

	// Rank is the 1-indexed placement. Tied competitors share a rank.
	Rank int `json:"rank"`

	// Tied is true iff at least one other competitor shares this rank.
	Tied bool `json:"tied"`
}

// RankGroup is one position in an ordered ranking: either a single
// competitor or a set of competitors tied for the position.
type RankGroup []string

// Solo wraps a single competitor as a RankGroup.
func Solo(competitor string) RankGroup { return RankGroup{competitor} }

// BuildRanking flattens an ordered sequence of rank groups, read best to
// worst, into Placement records. A group of size k occupies k positions:
// its members all receive the current rank with Tied set, and the rank
// counter advances by k. Empty input yields empty output.
func BuildRanking(ordered []RankGroup) []Placement {
	placements := make([]Placement, 0, len(ordered))
	rank := 1
	for _, group := range ordered {
		tied := len(group) > 1
		for _, competitor := range group {
			placements = append(placements, Placement{
				Competitor: competitor,
				Rank:       rank,
				Tied:       tied,
			})
		}
		rank += len(group)
	}
	return placements
}
