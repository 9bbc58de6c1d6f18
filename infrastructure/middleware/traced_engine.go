package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// Compile-time verification that TracedEngine implements VotingEngine.
var _ ports.VotingEngine = (*TracedEngine)(nil)

// TracedEngine wraps a VotingEngine with OpenTelemetry tracing and
// Prometheus metrics. Each Calculate call produces a span carrying the
// engine name and scoresheet dimensions, and records run latency and
// outcome counters through the metrics collector.
type TracedEngine struct {
	engine  ports.VotingEngine
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewTracedEngine creates an instrumented wrapper around the given
// engine. The metrics collector may be nil, in which case only tracing
// is performed.
func NewTracedEngine(engine ports.VotingEngine, metrics ports.MetricsCollector) *TracedEngine {
	return &TracedEngine{
		engine:  engine,
		metrics: metrics,
		tracer:  otel.Tracer("scrutineer/engines"),
	}
}

// Name returns the wrapped engine's name.
func (te *TracedEngine) Name() string { return te.engine.Name() }

// Description returns the wrapped engine's description.
func (te *TracedEngine) Description() string { return te.engine.Description() }

// Calculate runs the wrapped engine inside a span and records latency
// and outcome metrics.
func (te *TracedEngine) Calculate(
	ctx context.Context, sheet *domain.Scoresheet,
) (*domain.Result, error) {
	ctx, span := te.tracer.Start(ctx, "VotingEngine.Calculate",
		trace.WithAttributes(
			attribute.String("engine.name", te.engine.Name()),
			attribute.Int("scoresheet.competitors", len(sheet.Competitors)),
			attribute.Int("scoresheet.judges", len(sheet.Judges)),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := te.engine.Calculate(ctx, sheet)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(
			attribute.Int("result.placements", len(result.FinalRanking)),
		)
	}

	if te.metrics != nil {
		labels := map[string]string{"engine": te.engine.Name()}
		te.metrics.RecordLatency("engine_calculate", elapsed, labels)
		te.metrics.RecordCounter("engine_calculate", 1, map[string]string{
			"status": status,
			"source": te.engine.Name(),
		})
	}

	return result, err
}
