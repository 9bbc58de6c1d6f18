package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

func analysisSheet() *domain.Scoresheet {
	return &domain.Scoresheet{
		CompetitionName: "Clear Winner Classic",
		Competitors:     []string{"A", "B", "C", "D"},
		Judges:          []string{"J1", "J2", "J3"},
		Rankings: map[string]map[string]int{
			"J1": {"A": 1, "B": 2, "C": 3, "D": 4},
			"J2": {"A": 1, "B": 3, "C": 2, "D": 4},
			"J3": {"A": 2, "B": 1, "C": 3, "D": 4},
		},
	}
}

func newTestRegistry(t *testing.T) *EngineRegistry {
	t.Helper()
	registry, err := NewEngineRegistry(DefaultConfig().Engines, nil)
	require.NoError(t, err)
	return registry
}

func TestAnalyzer_Analyze(t *testing.T) {
	analyzer := NewAnalyzer(newTestRegistry(t), nil, nil, nil, nil)

	analysis, err := analyzer.Analyze(context.Background(), analysisSheet())
	require.NoError(t, err)

	assert.NotEmpty(t, analysis.RunID)
	assert.Equal(t, "Clear Winner Classic", analysis.CompetitionName)
	assert.Equal(t, []string{"A", "B", "C", "D"}, analysis.Competitors)
	assert.False(t, analysis.GeneratedAt.IsZero())

	require.Len(t, analysis.Outcomes, 4)
	for _, outcome := range analysis.Outcomes {
		require.NoError(t, outcome.Err, "engine %s should succeed", outcome.SystemName)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, outcome.SystemName, outcome.Result.SystemName)

		// All four systems agree on this sheet.
		rank, ok := outcome.Result.Place("A")
		require.True(t, ok)
		assert.Equal(t, 1, rank, "engine %s should place A first", outcome.SystemName)
	}
}

func TestAnalyzer_Analyze_InvalidSheet(t *testing.T) {
	analyzer := NewAnalyzer(newTestRegistry(t), nil, nil, nil, nil)

	sheet := analysisSheet()
	delete(sheet.Rankings, "J3")

	_, err := analyzer.Analyze(context.Background(), sheet)
	require.Error(t, err)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAnalyzer_Analyze_CancelledContext(t *testing.T) {
	analyzer := NewAnalyzer(newTestRegistry(t), nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analyzer.Analyze(ctx, analysisSheet())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Analyze_EngineFailureIsolated(t *testing.T) {
	registry := &EngineRegistry{engines: []ports.VotingEngine{
		&failingEngine{},
		newTestRegistry(t).Engines()[0],
	}}
	analyzer := NewAnalyzer(registry, nil, nil, nil, nil)

	analysis, err := analyzer.Analyze(context.Background(), analysisSheet())
	require.NoError(t, err)
	require.Len(t, analysis.Outcomes, 2)

	failed := analysis.Outcomes[0]
	assert.Equal(t, "Failing System", failed.SystemName)
	assert.Error(t, failed.Err)
	assert.Equal(t, "deliberate failure", failed.Error)
	assert.Nil(t, failed.Result)

	ok := analysis.Outcomes[1]
	require.NoError(t, ok.Err)
	require.NotNil(t, ok.Result)
	assert.Equal(t, "Borda Count", ok.SystemName)
}

func TestAnalyzer_AnalyzeContent_UnsupportedSource(t *testing.T) {
	analyzer := NewAnalyzer(newTestRegistry(t), nil, nil, nil, nil)

	_, err := analyzer.AnalyzeContent(context.Background(), "mystery.bin", []byte("??"), "")
	assert.ErrorIs(t, err, ports.ErrUnsupportedFormat)
}

func TestAnalyzer_AnalyzeContent_ParsesAndAnalyzes(t *testing.T) {
	parser := &stubParser{sheet: analysisSheet()}
	analyzer := NewAnalyzer(newTestRegistry(t), detectStub(parser), nil, nil, nil)

	analysis, err := analyzer.AnalyzeContent(context.Background(), "results.stub", []byte("payload"), "")
	require.NoError(t, err)
	assert.Equal(t, "Clear Winner Classic", analysis.CompetitionName)
	assert.Equal(t, "results.stub", parser.parsedSource)
}

func TestAnalyzer_AnalyzeContent_DivisionSelection(t *testing.T) {
	parser := &stubParser{sheet: analysisSheet()}
	analyzer := NewAnalyzer(newTestRegistry(t), detectStub(parser), nil, nil, nil)

	_, err := analyzer.AnalyzeContent(context.Background(), "results.stub", []byte("payload"), "Advanced")
	require.NoError(t, err)
	assert.Equal(t, "Advanced", parser.division)
}

func TestAnalyzer_AnalyzeURL(t *testing.T) {
	parser := &stubParser{sheet: analysisSheet()}
	fetcher := &stubFetcher{content: []byte("payload")}
	analyzer := NewAnalyzer(newTestRegistry(t), detectStub(parser), fetcher, nil, nil)

	analysis, err := analyzer.AnalyzeURL(context.Background(), "https://results.stub/1", "")
	require.NoError(t, err)
	assert.Len(t, analysis.Outcomes, 4)
	assert.Equal(t, "https://results.stub/1", fetcher.fetchedURL)
}

func TestAnalyzer_AnalyzeURL_NoFetcher(t *testing.T) {
	analyzer := NewAnalyzer(newTestRegistry(t), nil, nil, nil, nil)

	_, err := analyzer.AnalyzeURL(context.Background(), "https://results.stub/1", "")
	assert.ErrorIs(t, err, ports.ErrFetchFailed)
}

func TestAnalyzer_AnalyzeURL_FetchError(t *testing.T) {
	fetcher := &stubFetcher{err: ports.ErrBodyTooLarge}
	analyzer := NewAnalyzer(newTestRegistry(t), nil, fetcher, nil, nil)

	_, err := analyzer.AnalyzeURL(context.Background(), "https://results.stub/1", "")
	assert.ErrorIs(t, err, ports.ErrBodyTooLarge)
}

// failingEngine always errors, for failure isolation tests.
type failingEngine struct{}

func (f *failingEngine) Name() string        { return "Failing System" }
func (f *failingEngine) Description() string { return "always fails" }

func (f *failingEngine) Calculate(context.Context, *domain.Scoresheet) (*domain.Result, error) {
	return nil, errors.New("deliberate failure")
}

// detectStub always resolves to the given parser.
func detectStub(p ports.ScoresheetParser) DetectFunc {
	return func(string, []byte) (ports.ScoresheetParser, error) { return p, nil }
}

// stubParser accepts every source and returns a fixed sheet.
type stubParser struct {
	sheet        *domain.Scoresheet
	parsedSource string
	division     string
}

func (s *stubParser) Name() string                        { return "stub" }
func (s *stubParser) CanParse(string) bool                { return true }
func (s *stubParser) CanParseContent([]byte, string) bool { return true }
func (s *stubParser) ExampleURL() string                  { return "https://results.stub/1" }

func (s *stubParser) Parse(source string, _ []byte) (*domain.Scoresheet, error) {
	s.parsedSource = source
	return s.sheet, nil
}

func (s *stubParser) WithDivision(division string) ports.ScoresheetParser {
	s.division = division
	return s
}

// stubFetcher returns canned content or an error.
type stubFetcher struct {
	content    []byte
	err        error
	fetchedURL string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.fetchedURL = url
	if s.err != nil {
		return nil, s.err
	}
	return s.content, nil
}
