package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/topspot/internal/models"
)

const maxColumnWidth = 40

// resultTable builds a focused [table.Model] for t with a leading rank column.
func resultTable(t *models.ResultTable, height int) table.Model {
	headers := append([]string{"#"}, t.Columns()...)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}

	rows := make([]table.Row, 0, t.Len())
	for i, record := range t.Records() {
		row := append(table.Row{strconv.Itoa(i + 1)}, record...)
		for j, cell := range row {
			widths[j] = max(widths[j], min(lipgloss.Width(cell), maxColumnWidth))
		}
		rows = append(rows, row)
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("#1DB954"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("#1DB954")).
		Bold(false)

	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(height, 3)),
		table.WithStyles(s),
	)
}
