package export

import (
	"strconv"

	"github.com/smallbiznis/statement/internal/providers/pdf"
	"github.com/smallbiznis/statement/internal/report/domain"
	"github.com/smallbiznis/statement/pkg/money"
)

// PDFData lays the report out as summary lines and three tables.
func PDFData(report *domain.RevenueReport, companyName, symbol string) pdf.ReportData {
	data := pdf.ReportData{
		CompanyName: companyName,
		Title:       "Revenue report " + report.Period.Key,
		Subtitle: report.Period.From.Format(domain.DayLayout) + " to " +
			report.Period.To.AddDate(0, 0, -1).Format(domain.DayLayout),
		Summary: []pdf.SummaryLine{
			{Label: "Invoices", Value: strconv.Itoa(report.InvoiceCount)},
			{Label: "Total revenue", Value: money.Format(report.TotalRevenue, symbol)},
		},
	}
	if report.CustomerID != "" {
		data.Summary = append(data.Summary, pdf.SummaryLine{Label: "Customer", Value: report.CustomerID})
	}

	series := pdf.Table{
		Heading: "By " + seriesHeading(report.Period),
		Columns: []string{seriesHeading(report.Period), "Invoices", "Revenue"},
		Widths:  []int{6, 2, 4},
		Footer:  []string{"Total", strconv.Itoa(report.InvoiceCount), money.Format(report.TotalRevenue, symbol)},
	}
	for _, p := range report.Series {
		if p.Invoices == 0 {
			continue
		}
		series.Rows = append(series.Rows, []string{p.Key, strconv.Itoa(p.Invoices), money.Format(p.Revenue, symbol)})
	}

	customers := pdf.Table{
		Heading: "By customer",
		Columns: []string{"Customer", "Invoices", "Revenue"},
		Widths:  []int{6, 2, 4},
	}
	for _, c := range report.Customers {
		customers.Rows = append(customers.Rows, []string{c.CustomerName, strconv.Itoa(c.Invoices), money.Format(c.Revenue, symbol)})
	}

	products := pdf.Table{
		Heading: "By product",
		Columns: []string{"Product", "Quantity", "Revenue"},
		Widths:  []int{6, 2, 4},
	}
	for _, p := range report.Products {
		products.Rows = append(products.Rows, []string{p.Description, strconv.FormatInt(p.Quantity, 10), money.Format(p.Revenue, symbol)})
	}

	data.Tables = []pdf.Table{series, customers, products}
	return data
}
