package domain

import (
	"context"

	"gorm.io/gorm"
)

type RepositoryFilter struct {
	ProductID     string
	CustomerID    string
	PriceCategory string
	Active        *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *PricingRule) error
	Update(ctx context.Context, db *gorm.DB, rule *PricingRule) error
	ReplaceTiers(ctx context.Context, db *gorm.DB, ruleID string, tiers []PricingTier) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*PricingRule, error)
	List(ctx context.Context, db *gorm.DB, filter RepositoryFilter) ([]PricingRule, error)
	ListActiveByProduct(ctx context.Context, db *gorm.DB, productID string) ([]PricingRule, error)
	Delete(ctx context.Context, db *gorm.DB, id string) error
}
