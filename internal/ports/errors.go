package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur while acquiring and
// parsing scoresheets.
var (
	// ErrUnsupportedFormat indicates that no registered parser
	// recognizes the source.
	ErrUnsupportedFormat = errors.New("unsupported scoresheet format")

	// ErrPrelimsScoresheet indicates that the source is a
	// prelims/callback round, which has judge call scores rather than
	// the per-couple rankings the engines need.
	ErrPrelimsScoresheet = errors.New("prelims scoresheet")

	// ErrFetchFailed indicates that downloading the scoresheet failed.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrBodyTooLarge indicates that the fetched content exceeded the
	// configured size limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// ParseError reports a parser failure with the parser and source involved.
type ParseError struct {
	// Parser is the name of the parser that failed.
	Parser string

	// Source is the URL or filename being parsed.
	Source string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: parser=%s, source=%s, err=%v", e.Parser, e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }
