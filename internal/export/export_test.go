package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ceneo-opinions/internal/scraper"
)

var columns = []string{scraper.FieldOpinionID, scraper.FieldStars, scraper.FieldPros, scraper.FieldPurchaseDate}

func sample() []scraper.Record {
	a := scraper.NewRecord()
	a.Set(scraper.FieldOpinionID, scraper.Text("1"))
	a.Set(scraper.FieldStars, scraper.Text("4,5/5"))
	a.Set(scraper.FieldPros, scraper.List([]string{"cichy", "lekki"}))
	a.Set(scraper.FieldPurchaseDate, scraper.Null)

	b := scraper.NewRecord()
	b.Set(scraper.FieldOpinionID, scraper.Text("2"))
	b.Set(scraper.FieldStars, scraper.Text("1/5"))
	b.Set(scraper.FieldPros, scraper.List(nil))
	b.Set(scraper.FieldPurchaseDate, scraper.Text("2024-01-02 10:00:00"))
	return []scraper.Record{a, b}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "XLSX", "json"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestCSV(t *testing.T) {
	data, err := Render(FormatCSV, sample(), columns)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"opinion_id", "stars", "pros", "purchase_date"},
		{"1", "4,5/5", "cichy; lekki", ""},
		{"2", "1/5", "", "2024-01-02 10:00:00"},
	}, rows)
}

func TestCSVEmpty(t *testing.T) {
	data, err := Render(FormatCSV, nil, columns)
	require.NoError(t, err)
	assert.Equal(t, "opinion_id,stars,pros,purchase_date\n", string(data))
}

func TestXLSX(t *testing.T) {
	data, err := Render(FormatXLSX, sample(), columns)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"opinion_id", "stars", "pros", "purchase_date"}, rows[0])
	assert.Equal(t, "cichy; lekki", rows[1][2])
	assert.Equal(t, "2024-01-02 10:00:00", rows[2][3])
}

func TestJSON(t *testing.T) {
	data, err := Render(FormatJSON, sample(), nil)
	require.NoError(t, err)

	var decoded []scraper.Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.True(t, sample()[0].Equal(decoded[0]))
	assert.Contains(t, string(data), `"purchase_date": null`)

	empty, err := Render(FormatJSON, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(empty))
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "product_42.xlsx", FormatXLSX.Filename("42"))
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestXLSXVotesAreNumbers(t *testing.T) {
	r := scraper.NewRecord()
	r.Set(scraper.FieldOpinionID, scraper.Text("7"))
	r.Set(scraper.FieldUseful, scraper.Text("12"))
	r.Set(scraper.FieldUnuseful, scraper.Null)
	cols := []string{scraper.FieldOpinionID, scraper.FieldUseful, scraper.FieldUnuseful}

	data, err := Render(FormatXLSX, []scraper.Record{r}, cols)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	typ, err := f.GetCellType(sheetName, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
	typ, err = f.GetCellType(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ)

	v, err := f.GetCellValue(sheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "12", v)
	v, err = f.GetCellValue(sheetName, "C2")
	require.NoError(t, err)
	assert.Empty(t, v)
}
