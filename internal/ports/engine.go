// Package ports defines the interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/scrutineer-app/scrutineer/internal/domain"
)

// VotingEngine evaluates one scoresheet under one voting system.
// Implementations must be deterministic apart from any documented random
// fallback, must not mutate the scoresheet, and must allocate fresh
// working state per Calculate call so repeated calls for the same sheet
// are independent.
type VotingEngine interface {
	// Name returns the human-readable name of the voting system.
	// The name is used for result labeling, logging, and metrics.
	Name() string

	// Description returns a short explanation of how the system works.
	Description() string

	// Calculate produces the final ranking and diagnostics for the
	// given scoresheet. Malformed input (missing placements,
	// inconsistent IDs) is returned as an error rather than a corrupt
	// ranking; an unresolved tie is a normal result, never an error.
	Calculate(ctx context.Context, sheet *domain.Scoresheet) (*domain.Result, error)
}
