package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is a table heading; right aligns its cells (headings stay left).
type column struct {
	title string
	right bool
}

var (
	busColumns    = []column{{"Bus", true}, {"Device", false}, {"Adapter", false}, {"EDID", false}}
	diffColumns   = []column{{"Offset", true}, {"Device", true}, {"File", true}}
	backupColumns = []column{{"File", false}, {"Bus", true}, {"Taken", false}, {"Size", true}}
)

func renderTable(cols []column, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if c.right {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
