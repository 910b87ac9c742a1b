package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

type RevenueRequest struct {
	PeriodType    string
	Key           string
	CustomerID    string
	IncludeDrafts bool
}

type ExportRequest struct {
	RevenueRequest
	Format string
}

type SeriesPoint struct {
	Key      string          `json:"key"`
	Invoices int             `json:"invoices"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CustomerRevenue struct {
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Invoices     int             `json:"invoices"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type ProductRevenue struct {
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type RevenueReport struct {
	Period        Period            `json:"period"`
	CustomerID    string            `json:"customer_id,omitempty"`
	IncludeDrafts bool              `json:"include_drafts"`
	GeneratedAt   time.Time         `json:"generated_at"`
	InvoiceCount  int               `json:"invoice_count"`
	TotalRevenue  decimal.Decimal   `json:"total_revenue"`
	Series        []SeriesPoint     `json:"series"`
	Customers     []CustomerRevenue `json:"customers"`
	Products      []ProductRevenue  `json:"products"`
}

type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Service interface {
	Revenue(ctx context.Context, req RevenueRequest) (*RevenueReport, error)
	Export(ctx context.Context, req ExportRequest) (*Document, error)
}

var (
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrInvalidFormat = errors.New("invalid_format")
)
