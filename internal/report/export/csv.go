// Package export renders revenue reports into downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/smallbiznis/statement/internal/report/domain"
	"github.com/smallbiznis/statement/pkg/money"
)

// utf8BOM makes Excel open the file as UTF-8 so CJK names survive.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV writes the report as consecutive sections separated by blank rows.
func CSV(report *domain.RevenueReport) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	rows := [][]string{
		{"Period", string(report.Period.Type), report.Period.Key},
		{"Invoices", strconv.Itoa(report.InvoiceCount)},
		{"Total revenue", money.Plain(report.TotalRevenue)},
		{},
		{seriesHeading(report.Period), "Invoices", "Revenue"},
	}
	for _, p := range report.Series {
		rows = append(rows, []string{p.Key, strconv.Itoa(p.Invoices), money.Plain(p.Revenue)})
	}

	rows = append(rows, []string{}, []string{"Customer ID", "Customer", "Invoices", "Revenue"})
	for _, c := range report.Customers {
		rows = append(rows, []string{c.CustomerID, c.CustomerName, strconv.Itoa(c.Invoices), money.Plain(c.Revenue)})
	}

	rows = append(rows, []string{}, []string{"Product ID", "Description", "Quantity", "Revenue"})
	for _, p := range report.Products {
		rows = append(rows, []string{p.ProductID, p.Description, strconv.FormatInt(p.Quantity, 10), money.Plain(p.Revenue)})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func seriesHeading(p domain.Period) string {
	if p.Type == domain.PeriodMonthly {
		return "Date"
	}
	return "Month"
}
