package export

import (
	"fmt"

	"github.com/smallbiznis/statement/internal/report/domain"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	seriesSheet    = "Series"
	customersSheet = "Customers"
	productsSheet  = "Products"
)

// XLSX writes one sheet per section, each with a styled header row and a
// totals row.
func XLSX(report *domain.RevenueReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: 4,
	})
	if err != nil {
		return nil, err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Period", string(report.Period.Type)},
		{"Key", report.Period.Key},
		{"Invoices", report.InvoiceCount},
		{"Total revenue", report.TotalRevenue.InexactFloat64()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A4", headerStyle); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 18)

	sheets := []sheet{seriesTable(report), customersTable(report), productsTable(report)}
	for _, s := range sheets {
		if err := s.write(f, headerStyle, amountStyle, totalStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
	total   []any
	// amountCol is the 1-based column formatted as money.
	amountCol int
}

func (s sheet) write(f *excelize.File, headerStyle, amountStyle, totalStyle int) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return err
	}

	for i, h := range s.headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		if err := f.SetCellValue(s.name, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return err
		}
		if i < len(s.widths) {
			_ = f.SetColWidth(s.name, col, col, s.widths[i])
		}
	}

	amountCol, _ := excelize.ColumnNumberToName(s.amountCol)
	for i, row := range s.rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
		amountCell := fmt.Sprintf("%s%d", amountCol, i+2)
		if err := f.SetCellStyle(s.name, amountCell, amountCell, amountStyle); err != nil {
			return err
		}
	}

	totalRow := len(s.rows) + 2
	first, _ := excelize.CoordinatesToCellName(1, totalRow)
	last, _ := excelize.CoordinatesToCellName(len(s.headers), totalRow)
	if err := f.SetSheetRow(s.name, first, &s.total); err != nil {
		return err
	}
	return f.SetCellStyle(s.name, first, last, totalStyle)
}

func seriesTable(report *domain.RevenueReport) sheet {
	s := sheet{
		name:      seriesSheet,
		headers:   []string{seriesHeading(report.Period), "Invoices", "Revenue"},
		widths:    []float64{14, 10, 16},
		amountCol: 3,
	}
	for _, p := range report.Series {
		s.rows = append(s.rows, []any{p.Key, p.Invoices, p.Revenue.InexactFloat64()})
	}
	s.total = []any{"Total", report.InvoiceCount, report.TotalRevenue.InexactFloat64()}
	return s
}

func customersTable(report *domain.RevenueReport) sheet {
	s := sheet{
		name:      customersSheet,
		headers:   []string{"Customer ID", "Customer", "Invoices", "Revenue"},
		widths:    []float64{22, 30, 10, 16},
		amountCol: 4,
	}
	for _, c := range report.Customers {
		s.rows = append(s.rows, []any{c.CustomerID, c.CustomerName, c.Invoices, c.Revenue.InexactFloat64()})
	}
	s.total = []any{"Total", "", report.InvoiceCount, report.TotalRevenue.InexactFloat64()}
	return s
}

func productsTable(report *domain.RevenueReport) sheet {
	s := sheet{
		name:      productsSheet,
		headers:   []string{"Product ID", "Description", "Quantity", "Revenue"},
		widths:    []float64{22, 30, 10, 16},
		amountCol: 4,
	}
	var quantity int64
	for _, p := range report.Products {
		quantity += p.Quantity
		s.rows = append(s.rows, []any{p.ProductID, p.Description, p.Quantity, p.Revenue.InexactFloat64()})
	}
	s.total = []any{"Total", "", quantity, report.TotalRevenue.InexactFloat64()}
	return s
}
