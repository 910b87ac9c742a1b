// Package domain contains persistence models for statements of account.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the statement lifecycle: draft on creation, pending once
// saved, completed once signed.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusCompleted:
		return true
	default:
		return false
	}
}

// Invoice is a statement of account issued to a customer.
type Invoice struct {
	ID               string          `json:"id" gorm:"primaryKey;size:64"`
	SerialNumber     string          `json:"serial_number" gorm:"size:32;not null;index:idx_invoices_serial_number;uniqueIndex:ux_invoices_customer_serial,priority:2"`
	CustomerID       string          `json:"customer_id" gorm:"size:64;not null;index;uniqueIndex:ux_invoices_customer_serial,priority:1"`
	CustomerName     string          `json:"customer_name" gorm:"not null"`
	InvoiceDate      time.Time       `json:"invoice_date" gorm:"not null;index"`
	Items            []InvoiceItem   `json:"items" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:numeric(14,2);not null"`
	Status           Status          `json:"status" gorm:"size:16;not null;index"`
	Signature        *string         `json:"signature,omitempty" gorm:"type:text"`
	SignedAt         *time.Time      `json:"signed_at,omitempty"`
	SignatureBatchID *string         `json:"signature_batch_id,omitempty" gorm:"size:32;index"`
	Note             string          `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one priced line of a statement.
type InvoiceItem struct {
	ID            string          `json:"id" gorm:"primaryKey;size:64"`
	InvoiceID     string          `json:"invoice_id" gorm:"size:64;not null;index"`
	Position      int             `json:"position" gorm:"not null"`
	ProductID     *string         `json:"product_id,omitempty" gorm:"size:64;index"`
	Description   string          `json:"description" gorm:"not null"`
	Specification string          `json:"specification,omitempty"`
	Quantity      int64           `json:"quantity" gorm:"not null"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	PriceSource   string          `json:"price_source,omitempty" gorm:"size:16"`
	RuleID        *string         `json:"rule_id,omitempty" gorm:"size:64"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
