package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by Scoresheet operations.
var (
	// ErrUnknownJudge indicates that a judge ID has no rankings on the sheet.
	ErrUnknownJudge = errors.New("unknown judge")

	// ErrUnknownCompetitor indicates that a competitor ID is not on the sheet.
	ErrUnknownCompetitor = errors.New("unknown competitor")

	// ErrMissingPlacement indicates that a judge has no placement recorded
	// for a competitor the sheet reports as entered.
	ErrMissingPlacement = errors.New("missing placement")
)

// PlacementError reports a failed placement lookup with the judge and
// competitor involved.
type PlacementError struct {
	// Judge is the judge whose placement was requested.
	Judge string

	// Competitor is the competitor whose placement was requested.
	Competitor string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for PlacementError.
func (e *PlacementError) Error() string {
	return fmt.Sprintf("placement lookup failed: judge=%s, competitor=%s, err=%v", e.Judge, e.Competitor, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is/As.
func (e *PlacementError) Unwrap() error { return e.Err }

// ValidationError represents a failed structural validation.
// It can carry multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
