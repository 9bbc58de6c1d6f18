package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

var _ ports.ScoresheetParser = (*ScoringDance)(nil)

// ScoringDance parses scoring.dance results pages. The pages embed a
// JSON-LD DanceEvent block with per-judge placements, so parsing is a
// matter of locating the right script tag.
//
// Recognized URLs:
//
//	https://scoring.dance/events/<n>/results/<n>.html
//	https://scoring.dance/<lang>/events/<n>/results/<n>.html
//
// where <lang> is a two-letter language code, optionally followed by a
// two-letter country code with or without a hyphen (en, enUS, en-US).
type ScoringDance struct{}

// NewScoringDance creates a scoring.dance parser.
func NewScoringDance() *ScoringDance { return &ScoringDance{} }

var scoringDanceURL = regexp.MustCompile(
	`^https?://scoring\.dance` +
		`(/[a-z]{2}(-?[A-Z]{2})?)?` +
		`/events/\d+` +
		`/results/\d+\.html$`)

// Name returns the parser identifier.
func (p *ScoringDance) Name() string { return "scoring.dance" }

// ExampleURL returns a representative results URL.
func (p *ScoringDance) ExampleURL() string {
	return "https://scoring.dance/events/123/results/456.html"
}

// CanParse reports whether the source is a scoring.dance results URL.
func (p *ScoringDance) CanParse(source string) bool {
	return scoringDanceURL.MatchString(source)
}

// CanParseContent reports whether the content looks like a scoring.dance
// page: a JSON-LD script block declaring a DanceEvent.
func (p *ScoringDance) CanParseContent(content []byte, filename string) bool {
	return bytes.Contains(content, []byte("application/ld+json")) &&
		bytes.Contains(content, []byte(`"DanceEvent"`))
}

// danceEvent is the JSON-LD payload shape scoring.dance embeds.
type danceEvent struct {
	Type   string            `json:"@type"`
	Name   string            `json:"name"`
	Round  danceEventRound   `json:"round"`
	Result []danceEventEntry `json:"result"`
}

type danceEventRound struct {
	Name string `json:"name"`
}

type danceEventEntry struct {
	Dancer           danceEventCouple     `json:"dancer"`
	JudgesPlacements []danceEventJudgeRef `json:"judges_placements"`
}

type danceEventCouple struct {
	Leader   danceEventPerson `json:"leader"`
	Follower danceEventPerson `json:"follower"`
}

type danceEventPerson struct {
	FullName string `json:"fullname"`
}

type danceEventJudgeRef struct {
	Name      string `json:"name"`
	Placement string `json:"placement"`
}

// Parse extracts the DanceEvent JSON-LD block and converts it into a
// scoresheet. A DanceEvent without judges_placements is a prelims page
// and is reported as ErrPrelimsScoresheet.
func (p *ScoringDance) Parse(source string, content []byte) (*domain.Scoresheet, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: err}
	}

	var event *danceEvent
	hasDanceEvent := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var candidate danceEvent
		if err := json.Unmarshal([]byte(s.Text()), &candidate); err != nil {
			return true
		}
		if candidate.Type != "DanceEvent" {
			return true
		}
		hasDanceEvent = true
		if len(candidate.Result) > 0 && len(candidate.Result[0].JudgesPlacements) > 0 {
			event = &candidate
			return false
		}
		return true
	})

	if event == nil {
		if hasDanceEvent {
			return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: ports.ErrPrelimsScoresheet}
		}
		return nil, &ports.ParseError{
			Parser: p.Name(),
			Source: source,
			Err:    fmt.Errorf("no DanceEvent JSON-LD with judges_placements found"),
		}
	}

	sheet, err := p.buildScoresheet(event)
	if err != nil {
		return nil, &ports.ParseError{Parser: p.Name(), Source: source, Err: err}
	}
	return sheet, nil
}

func (p *ScoringDance) buildScoresheet(event *danceEvent) (*domain.Scoresheet, error) {
	name := event.Name
	if name == "" {
		name = "Unknown Event"
	}
	if event.Round.Name != "" {
		name = name + " - " + event.Round.Name
	}

	if len(event.Result) == 0 {
		return nil, fmt.Errorf("no results in JSON-LD data")
	}

	// The judge list comes from the first entry; every entry carries
	// its placements in the same judge order.
	judges := make([]string, 0, len(event.Result[0].JudgesPlacements))
	for i, jp := range event.Result[0].JudgesPlacements {
		judgeName := cleanName(jp.Name)
		if judgeName == "" {
			judgeName = fmt.Sprintf("Judge %d", i+1)
		}
		judges = append(judges, judgeName)
	}
	if len(judges) == 0 {
		return nil, fmt.Errorf("no judges in results")
	}

	competitors := make([]string, 0, len(event.Result))
	rankings := make(map[string]map[string]int, len(judges))
	for _, judge := range judges {
		rankings[judge] = make(map[string]int, len(event.Result))
	}

	for _, entry := range event.Result {
		leader := cleanName(entry.Dancer.Leader.FullName)
		if leader == "" {
			leader = "Unknown Leader"
		}
		follower := cleanName(entry.Dancer.Follower.FullName)
		if follower == "" {
			follower = "Unknown Follower"
		}
		competitor := leader + " & " + follower
		competitors = append(competitors, competitor)

		for i, jp := range entry.JudgesPlacements {
			if i >= len(judges) {
				break
			}
			placement, err := strconv.Atoi(jp.Placement)
			if err != nil {
				placement = 0
			}
			rankings[judges[i]][competitor] = placement
		}
	}

	return &domain.Scoresheet{
		CompetitionName: name,
		Competitors:     competitors,
		Judges:          judges,
		Rankings:        rankings,
	}, nil
}
