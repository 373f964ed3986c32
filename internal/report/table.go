// Package report renders query results into payloads for clients: table
// records with column descriptors, CSV, a terminal table, a chart figure and
// a PNG chart.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"resultsdash/internal/dataset"
	"resultsdash/internal/query"
)

// Column describes one table column for a data-table widget.
type Column struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// TablePayload is the summary table as records keyed by column id. Missing
// means are null.
type TablePayload struct {
	Columns []Column         `json:"columns"`
	Data    []map[string]any `json:"data"`
}

// Table converts a summary table into its record form.
func Table(t query.SummaryTable) TablePayload {
	cols := t.Columns()
	payload := TablePayload{Columns: make([]Column, len(cols)), Data: make([]map[string]any, 0, len(t.Indicators))}
	for i, c := range cols {
		payload.Columns[i] = Column{Name: c, ID: c}
	}
	for i, indicator := range t.Indicators {
		rec := map[string]any{query.IndicatorColumn: indicator}
		for j, year := range t.Years {
			rec[year] = t.Cells[i][j]
		}
		payload.Data = append(payload.Data, rec)
	}
	return payload
}

// WriteCSV writes the header row followed by one row per indicator. Missing
// cells are empty.
func WriteCSV(w io.Writer, t query.SummaryTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns()); err != nil {
		return err
	}
	for i, indicator := range t.Indicators {
		record := make([]string, 0, len(t.Years)+1)
		record = append(record, indicator)
		for _, m := range t.Cells[i] {
			record = append(record, formatValue(m))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteText renders an aligned table for terminals, two decimals per cell.
func WriteText(w io.Writer, t query.SummaryTable) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Columns())
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, indicator := range t.Indicators {
		record := make([]string, 0, len(t.Years)+1)
		record = append(record, indicator)
		for _, m := range t.Cells[i] {
			if m.Valid {
				record = append(record, strconv.FormatFloat(m.Value, 'f', 2, 64))
			} else {
				record = append(record, "-")
			}
		}
		table.Append(record)
	}
	table.Render()
}

func formatValue(m dataset.Measure) string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}
