package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrutineer-app/scrutineer/internal/ports"
)

const eeproSingleDivisionHTML = `<html>
<head><title>Event Express Pro</title></head>
<body>
<h2>River City Swing 2025</h2>
<table>
<tr><td colspan="7">Division: Masters Jack and Jill</td></tr>
<tr><td>Place</td><td>Competitor</td><td>Pat Judge</td><td>Sam Judge</td><td>Lee Judge</td><td>BIB</td><td>Marks Sorted</td></tr>
<tr><td>1</td><td>Alice &amp; Bob</td><td>1</td><td>2</td><td>1</td><td>101</td><td>1 1 2</td></tr>
<tr><td>2</td><td>Carol &amp; Dan</td><td>2</td><td>1</td><td>3</td><td>102</td><td>1 2 3</td></tr>
<tr><td>3</td><td>Eve &amp; Frank</td><td>3</td><td>3</td><td>2</td><td>103</td><td>2 3 3</td></tr>
</table>
</body>
</html>`

const eeproMultiDivisionHTML = `<html>
<head><title>Event Express Pro</title></head>
<body>
<h2>River City Swing 2025</h2>
<table>
<tr><td colspan="6">Division: Novice Strictly</td></tr>
<tr><td>Place</td><td>Competitor</td><td>Pat Judge</td><td>Sam Judge</td><td>BIB</td><td>Marks Sorted</td></tr>
<tr><td>1</td><td>Gina &amp; Hal</td><td>1</td><td>1</td><td>201</td><td>1 1</td></tr>
<tr><td>2</td><td>Iris &amp; Jack</td><td>2</td><td>2</td><td>202</td><td>2 2</td></tr>
</table>
<table>
<tr><td colspan="6">Division: Advanced Strictly</td></tr>
<tr><td>Place</td><td>Competitor</td><td>Pat Judge</td><td>Sam Judge</td><td>BIB</td><td>Marks Sorted</td></tr>
<tr><td>1</td><td>Kim &amp; Lou</td><td>1</td><td>2</td><td>301</td><td>1 2</td></tr>
<tr><td>2</td><td>Mia &amp; Ned</td><td>2</td><td>1</td><td>302</td><td>1 2</td></tr>
</table>
</body>
</html>`

const eeproDisqualificationHTML = `<html>
<head><title>Event Express Pro</title></head>
<body>
<h2>River City Swing 2025</h2>
<table>
<tr><td colspan="5">Division: Open</td></tr>
<tr><td>Place</td><td>Competitor</td><td>Pat Judge</td><td>BIB</td><td>Marks Sorted</td></tr>
<tr><td>1</td><td>Alice &amp; Bob</td><td>1</td><td>101</td><td>1</td></tr>
<tr><td>2</td><td>Carol &amp; Dan</td><td>6-DQ</td><td>102</td><td>6</td></tr>
</table>
</body>
</html>`

func TestEepro_ParseSingleDivision(t *testing.T) {
	parser := NewEepro()
	sheet, err := parser.Parse("https://eepro.com/results/river-city/masters.html", []byte(eeproSingleDivisionHTML))
	require.NoError(t, err)

	assert.Equal(t, "River City Swing 2025 - Masters Jack and Jill", sheet.CompetitionName)
	assert.Equal(t, []string{"Alice & Bob", "Carol & Dan", "Eve & Frank"}, sheet.Competitors)
	assert.Equal(t, []string{"Pat Judge", "Sam Judge", "Lee Judge"}, sheet.Judges)

	assert.Equal(t, 1, sheet.Rankings["Pat Judge"]["Alice & Bob"])
	assert.Equal(t, 1, sheet.Rankings["Sam Judge"]["Carol & Dan"])
	assert.Equal(t, 2, sheet.Rankings["Lee Judge"]["Eve & Frank"])

	assert.NoError(t, sheet.Validate())
}

func TestEepro_MultipleDivisionsNeedSelection(t *testing.T) {
	parser := NewEepro()
	_, err := parser.Parse("results.html", []byte(eeproMultiDivisionHTML))
	require.Error(t, err)

	var choiceErr *DivisionChoiceError
	require.ErrorAs(t, err, &choiceErr)
	assert.Empty(t, choiceErr.Requested)
	assert.Equal(t, []string{"Novice Strictly", "Advanced Strictly"}, choiceErr.Available)
}

func TestEepro_SelectDivision(t *testing.T) {
	parser := &Eepro{Division: "advanced"}
	sheet, err := parser.Parse("results.html", []byte(eeproMultiDivisionHTML))
	require.NoError(t, err)

	assert.Equal(t, "River City Swing 2025 - Advanced Strictly", sheet.CompetitionName)
	assert.Equal(t, []string{"Kim & Lou", "Mia & Ned"}, sheet.Competitors)
}

func TestEepro_WithDivision(t *testing.T) {
	base := NewEepro()
	bound := base.WithDivision("novice")

	sheet, err := bound.Parse("results.html", []byte(eeproMultiDivisionHTML))
	require.NoError(t, err)
	assert.Equal(t, "River City Swing 2025 - Novice Strictly", sheet.CompetitionName)

	// The original parser stays unbound.
	assert.Empty(t, base.Division)
}

func TestEepro_UnknownDivision(t *testing.T) {
	parser := &Eepro{Division: "intermediate"}
	_, err := parser.Parse("results.html", []byte(eeproMultiDivisionHTML))
	require.Error(t, err)

	var choiceErr *DivisionChoiceError
	require.ErrorAs(t, err, &choiceErr)
	assert.Equal(t, "intermediate", choiceErr.Requested)
	assert.Len(t, choiceErr.Available, 2)
}

func TestEepro_DivisionNames(t *testing.T) {
	parser := NewEepro()
	names, err := parser.DivisionNames([]byte(eeproMultiDivisionHTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"Novice Strictly", "Advanced Strictly"}, names)
}

func TestEepro_DisqualificationMarks(t *testing.T) {
	parser := NewEepro()
	sheet, err := parser.Parse("results.html", []byte(eeproDisqualificationHTML))
	require.NoError(t, err)

	// "6-DQ" keeps its numeric placement.
	assert.Equal(t, 6, sheet.Rankings["Pat Judge"]["Carol & Dan"])
}

func TestEepro_NoDivisionTables(t *testing.T) {
	parser := NewEepro()
	_, err := parser.Parse("results.html", []byte("<html><table><tr><td>a</td><td>b</td></tr></table></html>"))
	require.Error(t, err)

	var perr *ports.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "eepro.com", perr.Parser)
}

func TestEepro_HeaderMatching(t *testing.T) {
	assert.True(t, headerMatches("Competitor", "competitor"))
	assert.True(t, headerMatches("Competitors", "competitor"))
	assert.True(t, headerMatches("Competitr", "competitor")) // typo within distance
	assert.True(t, headerMatches("BIB #", "bib"))
	assert.False(t, headerMatches("Marks Sorted", "competitor"))
}

func TestExtractPlacement(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		{text: "3", expected: 3},
		{text: "6-DQ", expected: 6},
		{text: " 12 ", expected: 12},
		{text: "DQ", expected: 0},
		{text: "", expected: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractPlacement(tt.text), "text=%q", tt.text)
	}
}
