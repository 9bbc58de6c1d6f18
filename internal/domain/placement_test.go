package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRanking(t *testing.T) {
	tests := []struct {
		name     string
		ordered  []RankGroup
		expected []Placement
	}{
		{
			name:     "empty",
			ordered:  nil,
			expected: []Placement{},
		},
		{
			name:    "no ties",
			ordered: []RankGroup{Solo("A"), Solo("B"), Solo("C")},
			expected: []Placement{
				{Competitor: "A", Rank: 1},
				{Competitor: "B", Rank: 2},
				{Competitor: "C", Rank: 3},
			},
		},
		{
			name:    "tie at the top skips a rank",
			ordered: []RankGroup{{"A", "B"}, Solo("C")},
			expected: []Placement{
				{Competitor: "A", Rank: 1, Tied: true},
				{Competitor: "B", Rank: 1, Tied: true},
				{Competitor: "C", Rank: 3},
			},
		},
		{
			name:    "tie in the middle",
			ordered: []RankGroup{Solo("A"), {"B", "C"}, Solo("D")},
			expected: []Placement{
				{Competitor: "A", Rank: 1},
				{Competitor: "B", Rank: 2, Tied: true},
				{Competitor: "C", Rank: 2, Tied: true},
				{Competitor: "D", Rank: 4},
			},
		},
		{
			name:    "everyone tied",
			ordered: []RankGroup{{"A", "B", "C"}},
			expected: []Placement{
				{Competitor: "A", Rank: 1, Tied: true},
				{Competitor: "B", Rank: 1, Tied: true},
				{Competitor: "C", Rank: 1, Tied: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildRanking(tt.ordered))
		})
	}
}

func TestResult_Place(t *testing.T) {
	result := &Result{
		SystemName: "Test System",
		FinalRanking: BuildRanking([]RankGroup{
			Solo("A"), {"B", "C"}, Solo("D"),
		}),
	}

	rank, ok := result.Place("C")
	assert.True(t, ok)
	assert.Equal(t, 2, rank)

	rank, ok = result.Place("D")
	assert.True(t, ok)
	assert.Equal(t, 4, rank)

	_, ok = result.Place("Z")
	assert.False(t, ok)
}
