package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// columnAlignment picks the cell alignment for one rendered column.
type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func (a columnAlignment) pretty() text.Align {
	if a == alignRight {
		return text.AlignRight
	}
	return text.AlignLeft
}

// renderTable draws headers and rows as a rounded go-pretty table.
// Short rows are padded with blank cells rather than dropped.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	width := len(headers)
	if width == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(paddedRow(headers, width))
	for _, cells := range rows {
		tw.AppendRow(paddedRow(cells, width))
	}

	configs := make([]table.ColumnConfig, width)
	for i := range configs {
		align := alignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align.pretty(),
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func paddedRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
