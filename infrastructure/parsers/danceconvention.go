package parsers

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var _ ports.ScoresheetParser = (*DanceConvention)(nil)

// DanceConvention parses danceconvention.net PDF scoresheets.
//
// The PDFs carry the event title at the top, a judge key mapping
// initials to full names, and a results table with columns
// #, Name, one column per judge (headed by initials), cumulative tally
// columns (1-1, 1-2, ...), Result and Remarks. Couples span two text
// rows: the leader on the row with the placement numbers and the
// follower on a continuation row beneath it.
type DanceConvention struct{}

// NewDanceConvention creates a danceconvention.net parser.
func NewDanceConvention() *DanceConvention { return &DanceConvention{} }

var danceConventionURL = regexp.MustCompile(
	`^https?://danceconvention\.net/eventdirector/[a-z]{2}/roundscores/\d+\.pdf$`)

// pdfCellGap is the horizontal gap, in PDF points, treated as a column
// boundary when reconstructing table cells from positioned text.
const pdfCellGap = 10.0

// Name returns the parser identifier.
func (p *DanceConvention) Name() string { return "danceconvention.net" }

// ExampleURL returns a representative scoresheet URL.
func (p *DanceConvention) ExampleURL() string {
	return "https://danceconvention.net/eventdirector/en/roundscores/123.pdf"
}

// CanParse reports whether the source is a danceconvention.net
// scoresheet URL.
func (p *DanceConvention) CanParse(source string) bool {
	return danceConventionURL.MatchString(source)
}

// CanParseContent reports whether the content looks like a
// danceconvention.net scoresheet: a PDF whose first page carries both a
// judge key and a results table header.
func (p *DanceConvention) CanParseContent(content []byte, filename string) bool {
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		return false
	}
	rows, err := extractPDFRows(content)
	if err != nil || len(rows) == 0 {
		return false
	}
	if len(extractJudgeKey(rows)) == 0 {
		return false
	}
	for _, row := range rows {
		if isResultsHeader(row) {
			return true
		}
	}
	return false
}

// Parse converts a danceconvention.net PDF into a scoresheet.
func (p *DanceConvention) Parse(source string, content []byte) (*domain.Scoresheet, error) {
	rows, err := extractPDFRows(content)
	if err != nil {
		return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: err}
	}

	sheet, err := parseScoresheetRows(rows)
	if err != nil {
		return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: err}
	}
	return sheet, nil
}

// extractPDFRows reads every page and reconstructs table rows as cell
// slices: text fragments on one line are ordered by X and split into
// cells wherever the horizontal gap exceeds pdfCellGap.
func extractPDFRows(content []byte) ([][]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	if reader.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	var out [][]string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("extracting text from page %d: %w", pageNum, err)
		}
		for _, row := range rows {
			cells := assembleCells(row.Content)
			if len(cells) > 0 {
				out = append(out, cells)
			}
		}
	}
	return out, nil
}

// assembleCells joins positioned text fragments into cells. Fragments
// closer than pdfCellGap belong to one cell; anything farther apart
// starts a new one.
func assembleCells(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var cell strings.Builder
	prevEnd := sorted[0].X
	for i, t := range sorted {
		if i > 0 && t.X-prevEnd > pdfCellGap {
			if s := cleanName(cell.String()); s != "" {
				cells = append(cells, s)
			}
			cell.Reset()
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if s := cleanName(cell.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}

// isJudgeInitials reports whether a string looks like judge initials:
// 2-4 alphanumeric runes, any script, any case (AG, IPz, КП).
func isJudgeInitials(s string) bool {
	runes := []rune(s)
	if len(runes) < 2 || len(runes) > 4 {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// extractJudgeKey finds the judge key lines: initials followed by at
// least two purely alphabetic name words, e.g. "AG Alexis Garrish".
func extractJudgeKey(rows [][]string) map[string]string {
	key := make(map[string]string)
	for _, row := range rows {
		words := strings.Fields(strings.Join(row, " "))
		if len(words) < 3 {
			continue
		}
		if !isJudgeInitials(words[0]) {
			continue
		}
		alphabetic := true
		for _, w := range words[1:] {
			for _, r := range w {
				if !unicode.IsLetter(r) {
					alphabetic = false
					break
				}
			}
			if !alphabetic {
				break
			}
		}
		if alphabetic {
			key[words[0]] = strings.Join(words[1:], " ")
		}
	}
	return key
}

// extractCompetitionName takes the first two content lines above the
// results as "title - event".
func extractCompetitionName(rows [][]string) string {
	var parts []string
	for _, row := range rows {
		if len(parts) >= 2 {
			break
		}
		line := strings.TrimSpace(strings.Join(row, " "))
		if line == "" || strings.HasPrefix(line, "Score legend") {
			continue
		}
		if isResultsHeader(row) {
			break
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return "Unknown Competition"
	}
	return strings.Join(parts, " - ")
}

// isResultsHeader reports whether a row is a results table header. The
// "#" competitor-number column is a language-independent marker and must
// sit in one of the first two cells.
func isResultsHeader(row []string) bool {
	for i, cell := range row {
		if i >= 2 {
			break
		}
		if strings.TrimSpace(cell) == "#" {
			return true
		}
	}
	return false
}

// hasCumulativeColumns reports whether a header row carries the 1-1,
// 1-2, ... tally columns that only finals tables have. Tiebreak tables
// and prelims sheets lack them.
func hasCumulativeColumns(row []string) bool {
	for _, cell := range row {
		if strings.HasPrefix(strings.TrimSpace(cell), "1-") {
			return true
		}
	}
	return false
}

// resultColumns locates the structural columns of a results header:
// the "#" column, the name column right after it, and the judge columns
// running up to the first cumulative or summary column.
type resultColumns struct {
	name       int
	judgeStart int
	judgeEnd   int
}

func findResultColumns(header []string) resultColumns {
	cols := resultColumns{name: 1, judgeStart: 2, judgeEnd: len(header)}
	for i, cell := range header {
		c := strings.TrimSpace(cell)
		switch {
		case c == "#":
			cols.name = i + 1
			cols.judgeStart = i + 2
		case strings.HasPrefix(c, "1-") || c == "Sum":
			if i < cols.judgeEnd {
				cols.judgeEnd = i
			}
		}
	}
	return cols
}

// looksLikeCallbacks reports whether judge cell values are callback
// scores rather than rankings: 0 (no), 10 (yes), or alternate scores
// like 4.5.
func looksLikeCallbacks(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v == "0" || v == "10" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err == nil && f >= 4.0 && f <= 5.0 && f != float64(int(f)) {
			continue
		}
		return false
	}
	return true
}

// parseScoresheetRows builds a scoresheet from reconstructed PDF rows:
// locate the finals results header, read judge initials from it, then
// consume data rows, merging each follower continuation row into the
// couple started on the row above.
func parseScoresheetRows(rows [][]string) (*domain.Scoresheet, error) {
	judgeKey := extractJudgeKey(rows)
	competitionName := extractCompetitionName(rows)

	headerIdx := -1
	prelimsHeaderIdx := -1
	for i, row := range rows {
		if !isResultsHeader(row) {
			continue
		}
		if hasCumulativeColumns(row) {
			headerIdx = i
			break
		}
		if prelimsHeaderIdx < 0 {
			prelimsHeaderIdx = i
		}
	}
	if headerIdx < 0 {
		if prelimsHeaderIdx >= 0 {
			if err := checkPrelims(rows, prelimsHeaderIdx); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("could not find finals results table in PDF")
	}

	header := rows[headerIdx]
	cols := findResultColumns(header)

	var initials []string
	for i := cols.judgeStart; i < cols.judgeEnd && i < len(header); i++ {
		if cell := strings.TrimSpace(header[i]); cell != "" {
			initials = append(initials, cell)
		}
	}
	if len(initials) == 0 {
		return nil, fmt.Errorf("could not find judge columns in table header")
	}

	judges := make([]string, len(initials))
	for i, init := range initials {
		if full, ok := judgeKey[init]; ok {
			judges[i] = full
		} else {
			judges[i] = init
		}
	}

	var competitors []string
	rankings := make(map[string]map[string]int, len(judges))
	for _, judge := range judges {
		rankings[judge] = make(map[string]int)
	}

	for _, row := range rows[headerIdx+1:] {
		if isResultsHeader(row) {
			// Continuation table on the next page.
			continue
		}
		if len(row) == 0 {
			continue
		}

		if _, err := strconv.Atoi(row[0]); err != nil {
			// Not a data row. A single bare name directly under a
			// couple's row is the follower half of the couple.
			if len(competitors) > 0 && isNameContinuation(row) {
				leader := competitors[len(competitors)-1]
				combined := leader + " & " + cleanName(strings.Join(row, " "))
				competitors[len(competitors)-1] = combined
				for _, judge := range judges {
					if placement, ok := rankings[judge][leader]; ok {
						delete(rankings[judge], leader)
						rankings[judge][combined] = placement
					}
				}
			}
			continue
		}

		if len(row) <= cols.name {
			continue
		}
		competitor := cleanName(row[cols.name])
		if competitor == "" {
			continue
		}
		competitors = append(competitors, competitor)

		for i, judge := range judges {
			cellIdx := cols.judgeStart + i
			if cellIdx >= len(row) {
				continue
			}
			if placement, err := strconv.Atoi(strings.TrimSpace(row[cellIdx])); err == nil {
				rankings[judge][competitor] = placement
			}
		}
	}

	if len(competitors) == 0 {
		return nil, fmt.Errorf("no competitors found in table")
	}

	// An incomplete column still produces a sheet; validation flags the
	// zero placements downstream.
	for _, judge := range judges {
		for _, competitor := range competitors {
			if _, ok := rankings[judge][competitor]; !ok {
				rankings[judge][competitor] = 0
			}
		}
	}

	return &domain.Scoresheet{
		CompetitionName: competitionName,
		Competitors:     competitors,
		Judges:          judges,
		Rankings:        rankings,
	}, nil
}

// isNameContinuation reports whether a row looks like the follower half
// of a couple: alphabetic words only, no placement numbers.
func isNameContinuation(row []string) bool {
	joined := strings.Join(row, " ")
	if strings.TrimSpace(joined) == "" {
		return false
	}
	for _, w := range strings.Fields(joined) {
		for _, r := range w {
			if unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// checkPrelims inspects a headerless-tally results table for callback
// scoring and reports ErrPrelimsScoresheet when it matches.
func checkPrelims(rows [][]string, headerIdx int) error {
	header := rows[headerIdx]
	cols := findResultColumns(header)

	var values []string
	for _, row := range rows[headerIdx+1:] {
		if isResultsHeader(row) {
			continue
		}
		if len(row) == 0 {
			continue
		}
		if _, err := strconv.Atoi(row[0]); err != nil {
			continue
		}
		for i := cols.judgeStart; i < cols.judgeEnd && i < len(row); i++ {
			if v := strings.TrimSpace(row[i]); v != "" {
				values = append(values, v)
			}
		}
	}

	if looksLikeCallbacks(values) {
		return ports.ErrPrelimsScoresheet
	}
	return nil
}
