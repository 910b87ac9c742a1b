package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/statement/pkg/db/pagination"
)

// ItemInput is one line as entered by staff. A nil UnitPrice asks for the
// price to be resolved from the pricing rules.
type ItemInput struct {
	ProductID     string           `json:"product_id"`
	Description   string           `json:"description"`
	Specification string           `json:"specification"`
	Quantity      int64            `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
}

type CreateRequest struct {
	CustomerID  string
	InvoiceDate time.Time
	Note        string
	Items       []ItemInput
}

type SaveRequest struct {
	InvoiceDate *time.Time
	Note        *string
	Items       []ItemInput
}

type SignRequest struct {
	Signature string
}

type BatchSignRequest struct {
	IDs       []string
	Signature string
}

type BatchSignFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BatchSignResult struct {
	BatchID string             `json:"batch_id"`
	Signed  []string           `json:"signed"`
	Failed  []BatchSignFailure `json:"failed"`
}

type ListRequest struct {
	PageToken    string
	PageSize     int32
	CustomerID   string
	Status       string
	SerialPrefix string
	DateFrom     *time.Time
	DateTo       *time.Time
}

type ListFilter struct {
	CustomerID   string
	Status       Status
	SerialPrefix string
	DateFrom     *time.Time
	DateTo       *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type SerialPreview struct {
	CustomerID   string `json:"customer_id"`
	Prefix       string `json:"prefix"`
	SerialNumber string `json:"serial_number"`
}

// Document is a rendered file ready to be streamed to the client.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
	Save(ctx context.Context, id string, req SaveRequest) (*Invoice, error)
	Sign(ctx context.Context, id string, req SignRequest) (*Invoice, error)
	BatchSign(ctx context.Context, req BatchSignRequest) (*BatchSignResult, error)
	Get(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Delete(ctx context.Context, id string) error
	NextSerialPreview(ctx context.Context, customerID string) (*SerialPreview, error)
	RenderPDF(ctx context.Context, id string) (*Document, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidCustomer    = errors.New("invalid_customer")
	ErrInvalidInvoiceDate = errors.New("invalid_invoice_date")
	ErrInvalidItem        = errors.New("invalid_item")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrEmptyBatch         = errors.New("invalid_batch")
	ErrInvoiceCompleted   = errors.New("invoice_completed")
	ErrInvoiceNotSaved    = errors.New("invoice_not_saved")
	ErrSerialConflict     = errors.New("serial_conflict")
	ErrSerialExhausted    = errors.New("serial_exhausted")
	ErrNotFound           = errors.New("not_found")
)
