package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/statement/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Tier      string
}

type ListCustomerFilter struct {
	Name string
	Tier Tier
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	TaxID         string
	CustomerTier  *string
	PriceCategory *string
	Metadata      map[string]any
}

// UpdateCustomerRequest carries a partial update. Nil fields are left as is.
type UpdateCustomerRequest struct {
	ID            string
	Name          *string
	ContactPerson *string
	Phone         *string
	Email         *string
	Address       *string
	TaxID         *string
	CustomerTier  *string
	Metadata      map[string]any
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	Delete(context.Context, string) error
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidTier  = errors.New("invalid_customer_tier")
	ErrInvalidID    = errors.New("invalid_id")
	ErrHasInvoices  = errors.New("customer_has_invoices")
	ErrNotFound     = errors.New("not_found")
)
