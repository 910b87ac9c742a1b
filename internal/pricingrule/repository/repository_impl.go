package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/statement/internal/pricingrule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.PricingRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *domain.PricingRule) error {
	return db.WithContext(ctx).Omit("Tiers").Save(rule).Error
}

func (r *repo) ReplaceTiers(ctx context.Context, db *gorm.DB, ruleID string, tiers []domain.PricingTier) error {
	if err := db.WithContext(ctx).Where("rule_id = ?", ruleID).Delete(&domain.PricingTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&tiers).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := db.WithContext(ctx).
		Preload("Tiers", orderTiers).
		Where("id = ?", id).
		Take(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.RepositoryFilter) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	stmt := db.WithContext(ctx).Model(&domain.PricingRule{}).Preload("Tiers", orderTiers)
	if filter.ProductID != "" {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.CustomerID != "" {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.PriceCategory != "" {
		stmt = stmt.Where("price_category = ?", filter.PriceCategory)
	}
	if filter.Active != nil {
		stmt = stmt.Where("is_active = ?", *filter.Active)
	}
	if err := stmt.Order("created_at asc, id asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActiveByProduct returns the candidates for price resolution. Creation
// order decides the winner when several rules match at the same level.
func (r *repo) ListActiveByProduct(ctx context.Context, db *gorm.DB, productID string) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	err := db.WithContext(ctx).
		Preload("Tiers", orderTiers).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("created_at asc, id asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).Delete(&domain.PricingTier{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.PricingRule{}).Error
	})
}

func orderTiers(db *gorm.DB) *gorm.DB {
	return db.Order("min_quantity asc, position asc")
}
