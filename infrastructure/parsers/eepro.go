package parsers

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var (
	_ ports.ScoresheetParser = (*Eepro)(nil)
	_ ports.DivisionSelector = (*Eepro)(nil)
)

// Eepro parses eepro.com (Event Express Pro) results pages. The pages
// hold one plain HTML table per division: a colspan header cell with the
// division name, a column header row (Place, Competitor, judge names,
// BIB, Marks Sorted), then one row per couple.
//
// A page can carry several divisions. Set Division to a case-insensitive
// substring of the wanted division name; with Division empty a
// multi-division page fails with a *DivisionChoiceError listing the
// options.
type Eepro struct {
	// Division selects which division table to parse on multi-division
	// pages. Matched as a case-insensitive substring.
	Division string
}

// NewEepro creates an eepro.com parser.
func NewEepro() *Eepro { return &Eepro{} }

// WithDivision returns a copy of the parser bound to the given
// division.
func (p *Eepro) WithDivision(division string) ports.ScoresheetParser {
	return &Eepro{Division: division}
}

var eeproURL = regexp.MustCompile(
	`^https?://eepro\.com/results/[a-zA-Z0-9_-]+/[a-zA-Z0-9_-]+\.html$`)

// placementNumber extracts the leading number from cells like "3" or
// "6-DQ".
var placementNumber = regexp.MustCompile(`^(\d+)`)

// Name returns the parser identifier.
func (p *Eepro) Name() string { return "eepro.com" }

// ExampleURL returns a representative results URL.
func (p *Eepro) ExampleURL() string {
	return "https://eepro.com/results/event-name/division-name.html"
}

// CanParse reports whether the source is an eepro.com results URL.
func (p *Eepro) CanParse(source string) bool {
	return eeproURL.MatchString(source)
}

// CanParseContent reports whether the content looks like an eepro.com
// page. The tell-tale sign is the "Event Express Pro" product name.
func (p *Eepro) CanParseContent(content []byte, filename string) bool {
	return bytes.Contains(bytes.ToLower(content), []byte("event express pro"))
}

// DivisionChoiceError reports that a division could not be selected,
// either because the page has several and none was requested, or because
// the requested one is not on the page.
type DivisionChoiceError struct {
	// Requested is the division search string, empty when none was given.
	Requested string

	// Available lists the division names found on the page.
	Available []string
}

// Error implements the error interface for DivisionChoiceError.
func (e *DivisionChoiceError) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("no division matching %q; available: %s",
			e.Requested, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("page contains %d divisions, specify one of: %s",
		len(e.Available), strings.Join(e.Available, ", "))
}

// Parse converts an eepro.com page into a scoresheet for the selected
// division.
func (p *Eepro) Parse(source string, content []byte) (*domain.Scoresheet, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: err}
	}

	tables, names := divisionTables(doc)
	if len(tables) == 0 {
		return nil, &ports.ParseError{
			Parser: p.Name(),
			Source: source,
			Err:    fmt.Errorf("no division tables found"),
		}
	}

	selected := -1
	switch {
	case p.Division != "":
		want := strings.ToLower(p.Division)
		for i, name := range names {
			if strings.Contains(strings.ToLower(name), want) {
				selected = i
				break
			}
		}
		if selected < 0 {
			return nil, &ports.ParseError{
				Parser: p.Name(),
				Source: source,
				Err:    &DivisionChoiceError{Requested: p.Division, Available: names},
			}
		}
	case len(tables) == 1:
		selected = 0
	default:
		return nil, &ports.ParseError{
			Parser: p.Name(),
			Source: source,
			Err:    &DivisionChoiceError{Available: names},
		}
	}

	eventName := "Unknown Event"
	if h2 := doc.Find("h2").First(); h2.Length() > 0 {
		eventName = cleanName(h2.Text())
	}

	sheet, err := p.parseDivisionTable(tables[selected], eventName, names[selected])
	if err != nil {
		return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: err}
	}
	return sheet, nil
}

// DivisionNames lists the divisions present on an eepro.com page, for
// letting a caller pick one before re-parsing.
func (p *Eepro) DivisionNames(content []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	_, names := divisionTables(doc)
	return names, nil
}

// divisionTables finds the division tables: tables whose first row is a
// single colspan cell carrying the division name.
func divisionTables(doc *goquery.Document) ([]*goquery.Selection, []string) {
	var tables []*goquery.Selection
	var names []string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		firstRow := table.Find("tr").First()
		cells := firstRow.Find("td")
		if cells.Length() != 1 {
			return
		}
		if _, ok := cells.First().Attr("colspan"); !ok {
			return
		}
		tables = append(tables, table)
		names = append(names, trimDivisionPrefix(cleanName(cells.First().Text())))
	})
	return tables, names
}

func trimDivisionPrefix(name string) string {
	if rest, ok := strings.CutPrefix(name, "Division:"); ok {
		return strings.TrimSpace(rest)
	}
	return name
}

// headerMatches reports whether a column header cell means the given
// label. Scraped headers vary ("Competitor", "Competitors", "Bib #") and
// occasionally carry typos, so a small Levenshtein distance is accepted
// alongside substring containment.
func headerMatches(header, label string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	if strings.Contains(h, label) {
		return true
	}
	return levenshtein.ComputeDistance(h, label) <= 2
}

func (p *Eepro) parseDivisionTable(table *goquery.Selection, eventName, divisionName string) (*domain.Scoresheet, error) {
	rows := table.Find("tr")
	if rows.Length() < 3 {
		return nil, fmt.Errorf("division table has too few rows")
	}

	var headers []string
	rows.Eq(1).Find("td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, cleanName(cell.Text()))
	})

	// Judge columns sit between the Competitor column and the BIB column.
	competitorIdx, bibIdx := -1, -1
	for i, h := range headers {
		if competitorIdx < 0 && headerMatches(h, "competitor") {
			competitorIdx = i
		}
		if bibIdx < 0 && headerMatches(h, "bib") {
			bibIdx = i
		}
	}
	if competitorIdx < 0 || bibIdx < 0 {
		return nil, fmt.Errorf("could not find Competitor or BIB columns in headers %v", headers)
	}

	judges := make([]string, 0, bibIdx-competitorIdx-1)
	for i := competitorIdx + 1; i < bibIdx; i++ {
		judges = append(judges, headers[i])
	}
	if len(judges) == 0 {
		return nil, fmt.Errorf("no judge columns found")
	}

	var competitors []string
	rankings := make(map[string]map[string]int, len(judges))
	for _, judge := range judges {
		rankings[judge] = make(map[string]int)
	}

	for i := 2; i < rows.Length(); i++ {
		cells := rows.Eq(i).Find("td")
		if cells.Length() < bibIdx {
			continue
		}

		competitor := cleanName(cells.Eq(competitorIdx).Text())
		if competitor == "" {
			continue
		}
		competitors = append(competitors, competitor)

		for j, judge := range judges {
			cellIdx := competitorIdx + 1 + j
			if cellIdx >= cells.Length() {
				continue
			}
			rankings[judge][competitor] = extractPlacement(cells.Eq(cellIdx).Text())
		}
	}

	if len(competitors) == 0 {
		return nil, fmt.Errorf("no competitors found in division table")
	}

	return &domain.Scoresheet{
		CompetitionName: eventName + " - " + divisionName,
		Competitors:     competitors,
		Judges:          judges,
		Rankings:        rankings,
	}, nil
}

// extractPlacement pulls the numeric placement out of a judge cell,
// tolerating suffixes like "6-DQ". Unparseable cells become 0 and fail
// scoresheet validation downstream instead of silently misranking.
func extractPlacement(text string) int {
	m := placementNumber.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
