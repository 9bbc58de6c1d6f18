package engines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrutineer-app/scrutineer/internal/domain"
)

func TestBordaCount_ClearWinner(t *testing.T) {
	engine := NewBordaCount()
	result, err := engine.Calculate(context.Background(), sheetClearWinner())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, rankingOrder(t, result))

	details, ok := result.Details.(*BordaDetails)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"A": 8, "B": 6, "C": 4, "D": 0}, details.Scores)
	assert.Equal(t, 9, details.MaxPossible)
	assert.Empty(t, details.Tiebreaks)

	for i, p := range result.FinalRanking {
		assert.Equal(t, i+1, p.Rank)
		assert.False(t, p.Tied)
	}
}

func TestBordaCount_TiebreakByRelativeScores(t *testing.T) {
	// A and B tie at 9, C and D tie at 6. Both pairs resolve on the
	// first relative recount: A beats B 3-2 and C beats D 3-2.
	engine := NewBordaCount()
	result, err := engine.Calculate(context.Background(), sheetDisagreement())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, rankingOrder(t, result))

	details, ok := result.Details.(*BordaDetails)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"A": 9, "B": 9, "C": 6, "D": 6}, details.Scores)

	require.Len(t, details.Tiebreaks, 2)

	first := details.Tiebreaks[0]
	assert.Equal(t, []string{"A", "B"}, first.TiedCompetitors)
	assert.Equal(t, 9, first.Score)
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, bordaMethodRecursive, first.Method)
	assert.Equal(t, map[string]int{"A": 3, "B": 2}, first.RelativeScores)

	second := details.Tiebreaks[1]
	assert.Equal(t, []string{"C", "D"}, second.TiedCompetitors)
	assert.Equal(t, 6, second.Score)
	assert.Equal(t, map[string]int{"C": 3, "D": 2}, second.RelativeScores)

	for i, p := range result.FinalRanking {
		assert.Equal(t, i+1, p.Rank)
		assert.False(t, p.Tied)
	}
}

func TestBordaCount_Unanimous(t *testing.T) {
	engine := NewBordaCount()
	result, err := engine.Calculate(context.Background(), sheetUnanimous())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, rankingOrder(t, result))

	details := result.Details.(*BordaDetails)
	assert.Equal(t, map[string]int{"A": 6, "B": 3, "C": 0}, details.Scores)
}

func TestBordaCount_TwoCompetitors(t *testing.T) {
	engine := NewBordaCount()
	result, err := engine.Calculate(context.Background(), sheetTwoCompetitors())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, rankingOrder(t, result))

	details := result.Details.(*BordaDetails)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, details.Scores)
	assert.Equal(t, 3, details.MaxPossible)
}

func TestBordaCount_PerfectCycleIsUnresolved(t *testing.T) {
	engine := NewBordaCount()
	result, err := engine.Calculate(context.Background(), sheetPerfectCycle())
	require.NoError(t, err)

	// Perfect symmetry: all scores equal and the relative recount
	// makes no progress, so the whole field ties at rank 1.
	require.Len(t, result.FinalRanking, 3)
	for _, p := range result.FinalRanking {
		assert.Equal(t, 1, p.Rank)
		assert.True(t, p.Tied)
	}

	details := result.Details.(*BordaDetails)
	assert.Equal(t, map[string]int{"A": 3, "B": 3, "C": 3}, details.Scores)
	require.Len(t, details.Tiebreaks, 1)
	assert.Equal(t, bordaMethodUnresolved, details.Tiebreaks[0].Method)
	assert.Equal(t, []string{"A", "B", "C"}, details.Tiebreaks[0].RemainingTied)
}

func TestBordaCount_Breakdowns(t *testing.T) {
	engine := NewBordaCount()
	result, err := engine.Calculate(context.Background(), sheetClearWinner())
	require.NoError(t, err)

	details := result.Details.(*BordaDetails)
	breakdown, ok := details.Breakdowns["A"]
	require.True(t, ok)
	assert.Equal(t, []string{"J1", "J2", "J3"}, breakdown.Judges)
	assert.Equal(t, []int{3, 3, 2}, breakdown.Points)
}

func TestBordaCount_InvalidScoresheet(t *testing.T) {
	engine := NewBordaCount()

	sheet := &domain.Scoresheet{
		Competitors: []string{"A", "B"},
		Judges:      []string{"J1"},
		Rankings:    map[string]map[string]int{"J1": {"A": 1}},
	}

	_, err := engine.Calculate(context.Background(), sheet)
	require.Error(t, err)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestBordaCount_ContextCancelled(t *testing.T) {
	engine := NewBordaCount()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Calculate(ctx, sheetClearWinner())
	assert.ErrorIs(t, err, context.Canceled)
}
