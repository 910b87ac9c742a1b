package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PricingRule scopes a base price and its quantity tiers to a product and,
// optionally, to a customer, a price category and a specification.
// Specificity is derived from which optional fields are set.
type PricingRule struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	ProductID     string          `json:"product_id" gorm:"type:varchar(64);not null;index:idx_pricing_rules_product"`
	Name          string          `json:"name" gorm:"type:text;not null;default:''"`
	CustomerID    *string         `json:"customer_id,omitempty" gorm:"type:varchar(64);index:idx_pricing_rules_customer"`
	PriceCategory *string         `json:"price_category,omitempty" gorm:"type:varchar(32)"`
	Specification *string         `json:"specification,omitempty" gorm:"type:text"`
	BasePrice     decimal.Decimal `json:"base_price" gorm:"type:numeric(12,2);not null"`
	IsActive      bool            `json:"is_active" gorm:"not null"`
	Tiers         []PricingTier   `json:"tiers" gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PricingRule) TableName() string { return "pricing_rules" }

// PricingTier is an inclusive quantity range with its own unit price.
// A nil MaxQuantity leaves the range open-ended.
type PricingTier struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	RuleID      string          `json:"rule_id" gorm:"type:varchar(64);not null;index"`
	MinQuantity int64           `json:"min_quantity" gorm:"not null"`
	MaxQuantity *int64          `json:"max_quantity,omitempty"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Position    int             `json:"position" gorm:"not null;default:0"`
}

func (PricingTier) TableName() string { return "pricing_tiers" }

func (r PricingRule) HasCustomer() bool { return present(r.CustomerID) }

func (r PricingRule) HasCategory() bool { return present(r.PriceCategory) }

func (r PricingRule) HasSpecification() bool { return present(r.Specification) }

func (r PricingRule) customerIs(id string) bool {
	return r.HasCustomer() && *r.CustomerID == id
}

func (r PricingRule) categoryIs(category string) bool {
	return r.HasCategory() && *r.PriceCategory == category
}

func (r PricingRule) specificationIs(spec string) bool {
	return r.HasSpecification() && *r.Specification == spec
}

func present(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}
