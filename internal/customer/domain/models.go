package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Tier classifies a customer for pricing and serial prefixing.
type Tier string

const (
	TierGeneral     Tier = "general"
	TierIndustry    Tier = "industry"
	TierKangshiting Tier = "kangshiting"
)

func (t Tier) Valid() bool {
	switch t {
	case TierGeneral, TierIndustry, TierKangshiting:
		return true
	default:
		return false
	}
}

// ParseTier normalizes value. The second result is false when value is not a
// known tier.
func ParseTier(value string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(value)))
	return t, t.Valid()
}

// EffectiveTier resolves the tier stored on a customer: the explicit tier,
// then the legacy price category, then general.
func EffectiveTier(customerTier, priceCategory *string) Tier {
	for _, candidate := range []*string{customerTier, priceCategory} {
		if candidate == nil || strings.TrimSpace(*candidate) == "" {
			continue
		}
		if t, ok := ParseTier(*candidate); ok {
			return t
		}
	}
	return TierGeneral
}

type Customer struct {
	ID                string            `gorm:"primaryKey;size:64" json:"id"`
	Name              string            `gorm:"not null;index" json:"name"`
	ContactPerson     string            `json:"contact_person,omitempty"`
	Phone             string            `json:"phone,omitempty"`
	Email             string            `json:"email,omitempty"`
	Address           string            `json:"address,omitempty"`
	TaxID             string            `gorm:"column:tax_id" json:"tax_id,omitempty"`
	CustomerTier      Tier              `gorm:"not null;default:general;index" json:"customer_tier"`
	PriceCategory     *string           `json:"price_category,omitempty"`
	StartSerialNumber *string           `json:"start_serial_number,omitempty"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
