package domain

import (
	"context"

	"github.com/smallbiznis/statement/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	Upsert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Customer, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	CountInvoices(ctx context.Context, db *gorm.DB, id string) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id string) error
}
