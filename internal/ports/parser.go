package ports

import (
	"github.com/scrutineer-app/scrutineer/internal/domain"
)

// ScoresheetParser turns one source format (a results website's HTML or
// PDF export) into a Scoresheet. Parsers are simple I/O adapters; their
// only contract obligation to the voting engines is to produce a valid
// scoresheet or fail.
type ScoresheetParser interface {
	// Name returns a short identifier for the source format.
	Name() string

	// CanParse reports whether the source URL or filename matches this
	// parser's format.
	CanParse(source string) bool

	// CanParseContent reports whether the raw content looks like this
	// parser's format. Used for file uploads where no URL is available
	// to match against.
	CanParseContent(content []byte, filename string) bool

	// Parse converts the raw content into a Scoresheet.
	// It returns ErrPrelimsScoresheet (wrapped) when the content is a
	// prelims/callback round rather than a finals ranking sheet.
	Parse(source string, content []byte) (*domain.Scoresheet, error)

	// ExampleURL returns a representative URL for user-facing
	// "supported formats" messages.
	ExampleURL() string
}

// DivisionSelector is implemented by parsers whose source documents
// carry several divisions; WithDivision returns a parser bound to one
// of them.
type DivisionSelector interface {
	WithDivision(division string) ScoresheetParser
}
