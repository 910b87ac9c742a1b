package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Archive(ctx context.Context, id string) (*Response, error)
}

type ListRequest struct {
	Name    string
	Active  *bool
	SortBy  string
	OrderBy string
}

type CreateRequest struct {
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	Description    *string         `json:"description"`
	ListPrice      decimal.Decimal `json:"list_price"`
	Specifications []string        `json:"specifications"`
	Active         *bool           `json:"active"`
}

type UpdateRequest struct {
	ID             string           `json:"-"`
	Name           *string          `json:"name"`
	Unit           *string          `json:"unit"`
	Description    *string          `json:"description"`
	ListPrice      *decimal.Decimal `json:"list_price"`
	Specifications []string         `json:"specifications"`
	Active         *bool            `json:"active"`
}

type Response struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit,omitempty"`
	Description    *string         `json:"description,omitempty"`
	ListPrice      decimal.Decimal `json:"list_price"`
	Specifications []string        `json:"specifications"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidListPrice = errors.New("invalid_list_price")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidID        = errors.New("invalid_id")
)
