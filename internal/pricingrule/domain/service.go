package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MaxTiersPerRule bounds the tiers accepted on write. The resolver itself
// handles any number of tiers.
const MaxTiersPerRule = 5

type Service interface {
	Create(ctx context.Context, req RuleRequest) (*Response, error)
	Update(ctx context.Context, id string, req RuleRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (*Response, error)
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
}

type TierInput struct {
	MinQuantity int64           `json:"min_quantity"`
	MaxQuantity *int64          `json:"max_quantity"`
	Price       decimal.Decimal `json:"price"`
}

type RuleRequest struct {
	Name          string          `json:"name"`
	ProductID     string          `json:"product_id"`
	CustomerID    *string         `json:"customer_id"`
	PriceCategory *string         `json:"price_category"`
	Specification *string         `json:"specification"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Tiers         []TierInput     `json:"tiers"`
	IsActive      *bool           `json:"is_active"`
}

type ListRequest struct {
	ProductID     string
	CustomerID    string
	PriceCategory string
	Active        *bool
}

type TierResponse struct {
	MinQuantity int64           `json:"min_quantity"`
	MaxQuantity *int64          `json:"max_quantity,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type Response struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ProductID     string          `json:"product_id"`
	CustomerID    *string         `json:"customer_id,omitempty"`
	PriceCategory *string         `json:"price_category,omitempty"`
	Specification *string         `json:"specification,omitempty"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Tiers         []TierResponse  `json:"tiers"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type QuoteRequest struct {
	ProductID     string `json:"product_id"`
	Quantity      int64  `json:"quantity"`
	Specification string `json:"specification"`
	CustomerID    string `json:"customer_id"`
}

const (
	SourceRule    = "rule"
	SourceCatalog = "catalog"
)

type QuoteResponse struct {
	ProductID     string          `json:"product_id"`
	Quantity      int64           `json:"quantity"`
	Specification string          `json:"specification,omitempty"`
	CustomerID    string          `json:"customer_id,omitempty"`
	PriceCategory string          `json:"price_category,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Amount        decimal.Decimal `json:"amount"`
	RuleID        string          `json:"rule_id,omitempty"`
	Level         string          `json:"level"`
	Source        string          `json:"source"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidProduct       = errors.New("invalid_product")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidPriceCategory = errors.New("invalid_price_category")
	ErrInvalidBasePrice     = errors.New("invalid_base_price")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrTooManyTiers         = errors.New("invalid_tiers")
	ErrInvalidTierRange     = errors.New("invalid_tier_range")
	ErrInvalidTierPrice     = errors.New("invalid_tier_price")
	ErrOverlappingTiers     = errors.New("invalid_tier_overlap")
	ErrUnboundedTier        = errors.New("invalid_tier_unbounded")
	ErrNotFound             = errors.New("not_found")
)

// ValidateTiers enforces the write-time tier rules: at most MaxTiersPerRule
// tiers, positive minimums, non-negative prices, ranges that do not overlap
// once sorted, and only the top tier left unbounded.
func ValidateTiers(tiers []TierInput) error {
	if len(tiers) > MaxTiersPerRule {
		return ErrTooManyTiers
	}

	converted := make([]PricingTier, 0, len(tiers))
	for _, t := range tiers {
		if t.MinQuantity < 1 {
			return ErrInvalidTierRange
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			return ErrInvalidTierRange
		}
		if t.Price.IsNegative() {
			return ErrInvalidTierPrice
		}
		converted = append(converted, PricingTier{
			MinQuantity: t.MinQuantity,
			MaxQuantity: t.MaxQuantity,
			Price:       t.Price,
		})
	}

	sorted := SortTiers(converted)
	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.MaxQuantity == nil {
			return ErrUnboundedTier
		}
		if next.MinQuantity <= *cur.MaxQuantity {
			return ErrOverlappingTiers
		}
	}
	return nil
}
