package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	Upsert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Product, error)
}
