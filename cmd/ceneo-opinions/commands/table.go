package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"ceneo-opinions/internal/stats"
)

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return t
}

func formatRating(r stats.Rating) string {
	if r.IsNaN() {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(r))
}
