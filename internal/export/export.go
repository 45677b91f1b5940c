package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"

	sheetName = "Opinie"
	// listSeparator joins pros/cons in tabular formats.
	listSeparator = "; "
)

// ParseFormat accepts "csv", "xlsx" and "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json; charset=utf-8"
	}
}

// Filename is the download name for a product export.
func (f Format) Filename(productID string) string {
	return "product_" + productID + "." + string(f)
}

// Render encodes records in the given format. columns fixes the column
// order of tabular formats and is ignored for JSON.
func Render(format Format, records []scraper.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, records, columns)
	case FormatXLSX:
		err = WriteXLSX(&buf, records, columns)
	case FormatJSON:
		err = WriteJSON(&buf, records)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteCSV(w io.Writer, records []scraper.Record, columns []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(row(r, columns)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func WriteXLSX(w io.Writer, records []scraper.Record, columns []string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if len(columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
			return fmt.Errorf("style xlsx header: %w", err)
		}
	}

	for i, r := range records {
		values := xlsxRow(r, columns)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteJSON writes the records as an indented array, the same shape the
// file store keeps on disk.
func WriteJSON(w io.Writer, records []scraper.Record) error {
	if records == nil {
		records = []scraper.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	return nil
}

func row(r scraper.Record, columns []string) []string {
	out := make([]string, len(columns))
	for i, name := range columns {
		out[i] = Cell(r.Get(name))
	}
	return out
}

// xlsxRow is row with vote counters written as numbers.
func xlsxRow(r scraper.Record, columns []string) []interface{} {
	cells := row(r, columns)
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
		if columns[i] != scraper.FieldUseful && columns[i] != scraper.FieldUnuseful {
			continue
		}
		if n, err := stats.ParseVotes(c); err == nil {
			values[i] = n
		}
	}
	return values
}

// Cell renders a value for a spreadsheet cell: null is empty, lists are
// joined.
func Cell(v scraper.Value) string {
	if v.IsList() {
		return strings.Join(v.Items(), listSeparator)
	}
	s, _ := v.String()
	return s
}
