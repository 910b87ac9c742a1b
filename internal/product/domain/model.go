package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Product struct {
	ID             string                      `json:"id" gorm:"primaryKey;size:64"`
	Name           string                      `json:"name" gorm:"not null;index"`
	Unit           string                      `json:"unit"`
	Description    *string                     `json:"description,omitempty"`
	ListPrice      decimal.Decimal             `json:"list_price" gorm:"type:numeric(12,2);not null;default:0"`
	Specifications datatypes.JSONSlice[string] `json:"specifications"`
	Active         bool                        `json:"active" gorm:"not null"`
	CreatedAt      time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
