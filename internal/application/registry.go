package application

import (
	"fmt"
	"math/rand"

	"github.com/scrutineer-app/scrutineer/infrastructure/engines"
	"github.com/scrutineer-app/scrutineer/infrastructure/middleware"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// EngineRegistry holds the fixed set of voting engines the service runs.
// The set is built once at construction; there is no runtime
// registration, which keeps the analysis output shape stable.
type EngineRegistry struct {
	engines []ports.VotingEngine
}

// NewEngineRegistry builds the four supported engines from the given
// configuration. When metrics is non-nil every engine is wrapped with
// tracing and metrics instrumentation.
func NewEngineRegistry(cfg EnginesConfig, metrics ports.MetricsCollector) (*EngineRegistry, error) {
	irvCfg := engines.DefaultSequentialIRVConfig()
	if cfg.IRV.MaxTiebreakDepth > 0 {
		irvCfg.MaxTiebreakDepth = cfg.IRV.MaxTiebreakDepth
	}
	if cfg.IRV.Seed != nil {
		irvCfg.Rand = rand.New(rand.NewSource(*cfg.IRV.Seed))
	}
	irv, err := engines.NewSequentialIRV(irvCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sequential IRV engine: %w", err)
	}

	all := []ports.VotingEngine{
		engines.NewBordaCount(),
		engines.NewRelativePlacement(),
		engines.NewSchulzeMethod(),
		irv,
	}
	if metrics != nil {
		for i, engine := range all {
			all[i] = middleware.NewTracedEngine(engine, metrics)
		}
	}
	return &EngineRegistry{engines: all}, nil
}

// Engines returns the registered engines in their fixed run order.
// The returned slice is a copy; callers may not mutate the registry.
func (r *EngineRegistry) Engines() []ports.VotingEngine {
	out := make([]ports.VotingEngine, len(r.engines))
	copy(out, r.engines)
	return out
}

// Get returns the engine with the given name, or false if no engine
// has that name.
func (r *EngineRegistry) Get(name string) (ports.VotingEngine, bool) {
	for _, engine := range r.engines {
		if engine.Name() == name {
			return engine, true
		}
	}
	return nil, false
}
