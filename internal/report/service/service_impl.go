package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/smallbiznis/statement/internal/config"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/observability/metrics"
	"github.com/smallbiznis/statement/internal/providers/pdf"
	"github.com/smallbiznis/statement/internal/report/domain"
	"github.com/smallbiznis/statement/internal/report/export"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Invoices invoicedomain.Repository
	PDF      pdf.Provider
	Profile  *config.ProfileHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	invoices invoicedomain.Repository
	pdf      pdf.Provider
	profile  *config.ProfileHolder
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("report.service"),
		clock:    p.Clock,
		invoices: p.Invoices,
		pdf:      p.PDF,
		profile:  p.Profile,
		metrics:  p.Metrics,
	}
}

func (s *Service) Revenue(ctx context.Context, req domain.RevenueRequest) (*domain.RevenueReport, error) {
	period, err := domain.ParsePeriod(req.PeriodType, req.Key)
	if err != nil {
		return nil, err
	}

	statuses := []invoicedomain.Status{invoicedomain.StatusPending, invoicedomain.StatusCompleted}
	if req.IncludeDrafts {
		statuses = append(statuses, invoicedomain.StatusDraft)
	}

	customerID := strings.TrimSpace(req.CustomerID)
	invoices, err := s.invoices.ListForPeriod(ctx, s.db, period.From, period.To, customerID, statuses)
	if err != nil {
		return nil, err
	}

	report := Aggregate(period, invoices)
	report.CustomerID = customerID
	report.IncludeDrafts = req.IncludeDrafts
	report.GeneratedAt = s.clock.Now()
	return report, nil
}

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (*domain.Document, error) {
	format := domain.Format(strings.ToLower(strings.TrimSpace(req.Format)))
	switch format {
	case domain.FormatCSV, domain.FormatXLSX, domain.FormatPDF:
	default:
		return nil, domain.ErrInvalidFormat
	}

	report, err := s.Revenue(ctx, req.RevenueRequest)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{Filename: exportFilename(report) + "." + string(format)}
	switch format {
	case domain.FormatCSV:
		doc.ContentType = "text/csv; charset=utf-8"
		doc.Content, err = export.CSV(report)
	case domain.FormatXLSX:
		doc.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		doc.Content, err = export.XLSX(report)
	case domain.FormatPDF:
		doc.ContentType = "application/pdf"
		doc.Content, err = s.renderPDF(ctx, report)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s report: %w", format, err)
	}

	s.metrics.RecordReportExport(ctx, string(format), string(report.Period.Type))
	s.log.Info("report exported",
		zap.String("format", string(format)),
		zap.String("period", report.Period.Key),
		zap.Int("invoices", report.InvoiceCount),
	)
	return doc, nil
}

func (s *Service) renderPDF(ctx context.Context, report *domain.RevenueReport) ([]byte, error) {
	profile := s.profile.Get()
	reader, err := s.pdf.GenerateReport(ctx, export.PDFData(report, profile.Company.Name, profile.Report.CurrencySymbol))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func exportFilename(report *domain.RevenueReport) string {
	parts := []string{"revenue", report.Period.Key}
	if report.CustomerID != "" {
		parts = append(parts, report.CustomerID)
	}
	return slug.Make(strings.Join(parts, " "))
}

// Aggregate folds invoices into a revenue report for period. Every bucket
// of the period appears in the series, empty ones with zero revenue.
func Aggregate(period domain.Period, invoices []invoicedomain.Invoice) *domain.RevenueReport {
	report := &domain.RevenueReport{
		Period:       period,
		TotalRevenue: decimal.Zero,
		Customers:    []domain.CustomerRevenue{},
		Products:     []domain.ProductRevenue{},
	}

	buckets := period.Buckets()
	series := make(map[string]*domain.SeriesPoint, len(buckets))
	report.Series = make([]domain.SeriesPoint, len(buckets))
	for i, key := range buckets {
		report.Series[i] = domain.SeriesPoint{Key: key, Revenue: decimal.Zero}
		series[key] = &report.Series[i]
	}

	customers := map[string]*domain.CustomerRevenue{}
	products := map[string]*domain.ProductRevenue{}
	var customerOrder, productOrder []string

	for _, invoice := range invoices {
		report.InvoiceCount++
		report.TotalRevenue = report.TotalRevenue.Add(invoice.TotalAmount)

		if point, ok := series[period.BucketOf(invoice.InvoiceDate)]; ok {
			point.Invoices++
			point.Revenue = point.Revenue.Add(invoice.TotalAmount)
		}

		c, ok := customers[invoice.CustomerID]
		if !ok {
			c = &domain.CustomerRevenue{CustomerID: invoice.CustomerID, CustomerName: invoice.CustomerName, Revenue: decimal.Zero}
			customers[invoice.CustomerID] = c
			customerOrder = append(customerOrder, invoice.CustomerID)
		}
		c.Invoices++
		c.Revenue = c.Revenue.Add(invoice.TotalAmount)

		for _, item := range invoice.Items {
			key, productID := productKey(item)
			p, ok := products[key]
			if !ok {
				p = &domain.ProductRevenue{ProductID: productID, Description: item.Description, Revenue: decimal.Zero}
				products[key] = p
				productOrder = append(productOrder, key)
			}
			p.Quantity += item.Quantity
			p.Revenue = p.Revenue.Add(item.Amount)
		}
	}

	for _, id := range customerOrder {
		report.Customers = append(report.Customers, *customers[id])
	}
	sort.SliceStable(report.Customers, func(i, j int) bool {
		return report.Customers[i].Revenue.GreaterThan(report.Customers[j].Revenue)
	})

	for _, key := range productOrder {
		report.Products = append(report.Products, *products[key])
	}
	sort.SliceStable(report.Products, func(i, j int) bool {
		return report.Products[i].Revenue.GreaterThan(report.Products[j].Revenue)
	})

	return report
}

// productKey groups catalog lines by product and free-text lines by their
// description.
func productKey(item invoicedomain.InvoiceItem) (string, string) {
	if item.ProductID != nil && *item.ProductID != "" {
		return "id:" + *item.ProductID, *item.ProductID
	}
	return "text:" + strings.ToLower(strings.TrimSpace(item.Description)), ""
}
