package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/statement/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Upsert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID string, items []InvoiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)
	ListSerialsWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error)
	ListForPeriod(ctx context.Context, db *gorm.DB, from, to time.Time, customerID string, statuses []Status) ([]Invoice, error)
	Delete(ctx context.Context, db *gorm.DB, id string) error
}
