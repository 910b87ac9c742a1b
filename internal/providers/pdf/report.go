package pdf

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type ReportData struct {
	CompanyName string
	Title       string
	Subtitle    string
	Summary     []SummaryLine
	Tables      []Table
}

type SummaryLine struct {
	Label string
	Value string
}

// Table is a titled grid. Widths are maroto grid units and should add up to
// twelve; columns after the first are right aligned.
type Table struct {
	Heading string
	Columns []string
	Widths  []int
	Rows    [][]string
	Footer  []string
}

func (p *PDFProvider) GenerateReport(ctx context.Context, data ReportData) (io.Reader, error) {
	m := maroto.New(p.newConfig())

	m.AddRow(9, text.NewCol(12, data.CompanyName, props.Text{Size: 11, Style: fontstyle.Bold}))
	m.AddRow(10, text.NewCol(12, data.Title, props.Text{Size: 15, Style: fontstyle.Bold}))
	if data.Subtitle != "" {
		m.AddRow(7, text.NewCol(12, data.Subtitle, props.Text{Size: 9}))
	}

	for _, s := range data.Summary {
		m.AddRow(6,
			text.NewCol(4, s.Label, props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewCol(8, s.Value, props.Text{Size: 9}),
		)
	}

	for _, table := range data.Tables {
		widths := columnWidths(table)
		m.AddRow(6)
		m.AddRow(8, text.NewCol(12, table.Heading, props.Text{Size: 11, Style: fontstyle.Bold}))
		m.AddRow(7, tableCols(table.Columns, widths, fontstyle.Bold)...)
		m.AddRow(2, line.NewCol(12))
		for _, row := range table.Rows {
			m.AddRow(6, tableCols(row, widths, fontstyle.Normal)...)
		}
		if len(table.Footer) > 0 {
			m.AddRow(2, line.NewCol(12))
			m.AddRow(7, tableCols(table.Footer, widths, fontstyle.Bold)...)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func tableCols(cells []string, widths []int, style fontstyle.Type) []core.Col {
	cols := make([]core.Col, 0, len(widths))
	for i, width := range widths {
		value := ""
		if i < len(cells) {
			value = strings.TrimSpace(cells[i])
		}
		textAlign := align.Right
		if i == 0 {
			textAlign = align.Left
		}
		cols = append(cols, text.NewCol(width, value, props.Text{Size: 8, Style: style, Align: textAlign}))
	}
	return cols
}

// columnWidths spreads twelve grid units evenly when the table does not set
// its own widths.
func columnWidths(table Table) []int {
	if len(table.Widths) == len(table.Columns) && len(table.Widths) > 0 {
		return table.Widths
	}
	n := len(table.Columns)
	if n == 0 {
		return nil
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = 12 / n
	}
	widths[0] += 12 - (12/n)*n
	return widths
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

func labelled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}
