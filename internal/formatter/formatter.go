// Package formatter renders a fetched [models.ResultTable] as a terminal table, CSV, Markdown or JSON.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/shared"
)

// Format is an output format for a result table.
type Format int

const (
	Table Format = iota
	CSV
	Markdown
	JSON
)

// Formats lists every format by name.
var Formats = []string{"table", "csv", "markdown", "json"}

func (f Format) String() string {
	if int(f) < len(Formats) && f >= 0 {
		return Formats[f]
	}
	return ""
}

// ParseFormat parses a format name; "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return Table, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	default:
		return 0, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, s, strings.Join(Formats, ", "))
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	rankStyle   = cellStyle.Foreground(lipgloss.Color("240")).Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Title describes the table, e.g. "Top 10 tracks · Last 4 weeks".
func Title(t *models.ResultTable) string {
	return fmt.Sprintf("Top %d %s · %s", t.Requested, t.Category, t.Window.Label())
}

// rankedRecords prefixes every record with its 1-based rank.
func rankedRecords(t *models.ResultTable) [][]string {
	records := t.Records()
	for i, rec := range records {
		records[i] = append([]string{strconv.Itoa(i + 1)}, rec...)
	}
	return records
}

// ExportToTable renders a bordered terminal table with a title and summary line.
func ExportToTable(t *models.ResultTable) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(append([]string{"#"}, t.Columns()...)...).
		Rows(rankedRecords(t)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return rankStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	b.WriteString(headerStyle.Render(Title(t)))
	b.WriteString("\n")
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	b.WriteString(Summary(t))
	b.WriteString("\n")
	return b.String()
}

// Summary reports how many rows were returned, and skipped items if any.
func Summary(t *models.ResultTable) string {
	s := fmt.Sprintf("%d of %d %s", t.Len(), t.Requested, t.Category)
	if t.Skipped > 0 {
		s += fmt.Sprintf(" (%d malformed skipped)", t.Skipped)
	}
	return s
}

// ExportToCSV writes a header of Rank plus the category's columns, then one record per row.
func ExportToCSV(t *models.ResultTable) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(append([]string{"Rank"}, t.Columns()...)); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range rankedRecords(t) {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

// ExportToMarkdown writes a heading and a GitHub-flavored Markdown table.
func ExportToMarkdown(t *models.ResultTable) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", Title(t))

	headers := append([]string{"#"}, t.Columns()...)
	buf.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")

	for _, record := range rankedRecords(t) {
		for i, cell := range record {
			record[i] = markdownEscaper.Replace(cell)
		}
		buf.WriteString("| " + strings.Join(record, " | ") + " |\n")
	}

	if t.Skipped > 0 {
		fmt.Fprintf(&buf, "\n_%d malformed items skipped._\n", t.Skipped)
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the table with rows keyed by column name.
func ExportToJSON(t *models.ResultTable, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(t, pretty)
}

// Render renders t in format.
func Render(t *models.ResultTable, format Format) ([]byte, error) {
	switch format {
	case Table:
		return []byte(ExportToTable(t)), nil
	case CSV:
		return ExportToCSV(t)
	case Markdown:
		return ExportToMarkdown(t)
	case JSON:
		return ExportToJSON(t, true)
	default:
		return nil, fmt.Errorf("%w: format %d", shared.ErrInvalidFlag, format)
	}
}

// WriteExport renders t and writes it to path.
func WriteExport(t *models.ResultTable, format Format, path string) error {
	data, err := Render(t, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
