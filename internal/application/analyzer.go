// Package application orchestrates scoresheet analysis: it owns the
// engine registry, the analyzer that fans a scoresheet out to every
// engine, and the service configuration.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scrutineer-app/scrutineer/infrastructure/parsers"
	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// EngineOutcome is one engine's slot in an analysis. Exactly one of
// Result and Err is set: an engine failure is captured here instead of
// aborting the sibling engines.
type EngineOutcome struct {
	// SystemName identifies the engine.
	SystemName string `json:"system_name"`

	// Result is the engine's ranking and diagnostics on success.
	Result *domain.Result `json:"result,omitempty"`

	// Err is the engine's failure, nil on success.
	Err error `json:"-"`

	// Error mirrors Err as a message for serialized output.
	Error string `json:"error,omitempty"`
}

// Analysis is the outcome of running every registered engine against
// one scoresheet.
type Analysis struct {
	// RunID uniquely identifies this analysis run.
	RunID string `json:"run_id"`

	// CompetitionName echoes the scoresheet's label.
	CompetitionName string `json:"competition_name"`

	// Competitors echoes the scoresheet's competitors in entry order.
	Competitors []string `json:"competitors"`

	// Judges echoes the scoresheet's judges.
	Judges []string `json:"judges"`

	// GeneratedAt is when the analysis completed.
	GeneratedAt time.Time `json:"generated_at"`

	// Outcomes has one slot per registered engine, in registry order.
	Outcomes []EngineOutcome `json:"outcomes"`
}

// DetectFunc finds a parser for a source and its raw content.
type DetectFunc func(source string, content []byte) (ports.ScoresheetParser, error)

// Analyzer runs scoresheets through every registered voting engine.
// Parsing and fetching collaborators are injected so the CLI and the
// HTTP server can compose it differently.
type Analyzer struct {
	registry *EngineRegistry
	detect   DetectFunc
	fetcher  ports.Fetcher
	metrics  ports.MetricsCollector
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil detect falls back to the
// built-in parser list; the fetcher may be nil when URL analysis is
// not needed; metrics may be nil to disable recording.
func NewAnalyzer(
	registry *EngineRegistry,
	detect DetectFunc,
	fetcher ports.Fetcher,
	metrics ports.MetricsCollector,
	logger *slog.Logger,
) *Analyzer {
	if detect == nil {
		detect = parsers.Detect
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		registry: registry,
		detect:   detect,
		fetcher:  fetcher,
		metrics:  metrics,
		logger:   logger,
	}
}

// Analyze runs every registered engine against the scoresheet
// concurrently. The scoresheet is validated once up front; engine
// failures land in their outcome slot and never abort siblings, so the
// returned error is non-nil only for invalid input or a cancelled
// context.
func (a *Analyzer) Analyze(ctx context.Context, sheet *domain.Scoresheet) (*Analysis, error) {
	if err := sheet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoresheet: %w", err)
	}

	engines := a.registry.Engines()
	outcomes := make([]EngineOutcome, len(engines))

	g, gctx := errgroup.WithContext(ctx)
	for i, engine := range engines {
		g.Go(func() error {
			result, err := engine.Calculate(gctx, sheet)
			outcome := EngineOutcome{SystemName: engine.Name()}
			if err != nil {
				// Context cancellation aborts the whole run;
				// anything else stays in this slot.
				if gctx.Err() != nil {
					return err
				}
				a.logger.Warn("engine failed",
					"engine", engine.Name(),
					"competition", sheet.CompetitionName,
					"error", err)
				outcome.Err = err
				outcome.Error = err.Error()
			} else {
				outcome.Result = result
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &Analysis{
		RunID:           uuid.NewString(),
		CompetitionName: sheet.CompetitionName,
		Competitors:     sheet.Competitors,
		Judges:          sheet.Judges,
		GeneratedAt:     time.Now().UTC(),
		Outcomes:        outcomes,
	}

	if a.metrics != nil {
		a.metrics.RecordCounter("analyze", 1, map[string]string{"status": "success"})
		a.metrics.RecordGauge("last_analysis_competitors", float64(sheet.NumCompetitors()), nil)
	}
	a.logger.Info("analysis complete",
		"run_id", analysis.RunID,
		"competition", sheet.CompetitionName,
		"competitors", sheet.NumCompetitors(),
		"judges", sheet.NumJudges())
	return analysis, nil
}

// AnalyzeContent detects a parser for the source, parses the content
// into a scoresheet, and analyzes it. Source is the URL or filename
// the content came from; division narrows multi-division sources and
// may be empty.
func (a *Analyzer) AnalyzeContent(ctx context.Context, source string, content []byte, division string) (*Analysis, error) {
	parser, err := a.detect(source, content)
	if err != nil {
		a.recordParse(source, "unsupported")
		return nil, err
	}
	if division != "" {
		if selector, ok := parser.(ports.DivisionSelector); ok {
			parser = selector.WithDivision(division)
		}
	}

	sheet, err := parser.Parse(source, content)
	if err != nil {
		a.recordParse(parser.Name(), "error")
		return nil, err
	}
	a.recordParse(parser.Name(), "success")
	return a.Analyze(ctx, sheet)
}

// AnalyzeURL downloads the scoresheet at the URL and analyzes it.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url, division string) (*Analysis, error) {
	if a.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", ports.ErrFetchFailed)
	}
	content, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeContent(ctx, url, content, division)
}

func (a *Analyzer) recordParse(source, status string) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordCounter("parse", 1, map[string]string{
		"status": status,
		"source": source,
	})
}
