// Package parsers contains the scoresheet parsers for the supported
// result sources: scoring.dance HTML, eepro.com HTML, and
// danceconvention.net PDF scoresheets. Each parser implements
// ports.ScoresheetParser; Detect walks the fixed parser list to find one
// that recognizes a source.
package parsers

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// All returns the supported parsers in detection order.
func All() []ports.ScoresheetParser {
	return []ports.ScoresheetParser{
		NewScoringDance(),
		NewEepro(),
		NewDanceConvention(),
	}
}

// Detect finds a parser for the source, matching the URL or filename
// first and falling back to content sniffing for file uploads. It
// returns ErrUnsupportedFormat when nothing matches.
func Detect(source string, content []byte) (ports.ScoresheetParser, error) {
	available := All()
	for _, p := range available {
		if p.CanParse(source) {
			return p, nil
		}
	}
	for _, p := range available {
		if p.CanParseContent(content, source) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedFormat, SupportedFormats())
}

// SupportedFormats returns a user-facing description of the supported
// sources, one example URL per parser.
func SupportedFormats() string {
	var b strings.Builder
	b.WriteString("supported scoresheet sources:")
	for _, p := range All() {
		b.WriteString("\n  - ")
		b.WriteString(p.ExampleURL())
	}
	return b.String()
}

// cleanName canonicalizes a competitor or judge name scraped from HTML
// or PDF text: Unicode NFC so visually identical names compare equal,
// with runs of whitespace collapsed to single spaces.
func cleanName(name string) string {
	name = norm.NFC.String(name)
	return strings.Join(strings.Fields(name), " ")
}
