package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// printTable writes rows under headers, or "No records" when rows is empty.
// rightAligned lists 1-based column numbers holding numbers. Terminals get
// rounded borders and a coloured header; pipes get plain ASCII.
func printTable(out io.Writer, headers []string, rows [][]string, rightAligned ...int) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No records")
		return
	}
	fmt.Fprintln(out, renderTable(headers, rows, rightAligned, shouldColorize(out)))
}

func renderTable(headers []string, rows [][]string, rightAligned []int, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleDefault)
	if colorize {
		tw.SetStyle(table.StyleRounded)
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgBlue}
	}

	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if slices.Contains(rightAligned, i+1) {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// toRow pads or truncates cells to width.
func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
