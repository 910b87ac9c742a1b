package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/statement/internal/customer/domain"
	"github.com/smallbiznis/statement/pkg/db/option"
	"github.com/smallbiznis/statement/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Save(customer).Error
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("id = ?", id).Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("name = ?", name).Order("created_at asc").Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Tier != "" {
		stmt = stmt.Where("customer_tier = ?", filter.Tier)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// CountInvoices counts invoices referencing the customer. The invoices table
// is queried directly so this package stays independent of the invoice domain.
func (r *repo) CountInvoices(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Table("invoices").Where("customer_id = ?", id).Count(&count).Error
	return count, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Customer{}).Error
}
