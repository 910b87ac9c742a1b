package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/pkg/db/option"
	"github.com/smallbiznis/statement/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Omit("Items").Save(invoice).Error
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit("Items").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(invoice).Error
		if err != nil {
			return err
		}
		return r.ReplaceItems(ctx, tx, invoice.ID, invoice.Items)
	})
}

func (r *repo) ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID string, items []domain.InvoiceItem) error {
	if err := db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Delete(&domain.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Invoice, error) {
	return r.find(ctx, db, id, false)
}

// FindByIDForUpdate locks the row on dialects that support it.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*domain.Invoice, error) {
	return r.find(ctx, db, id, db.Dialector.Name() != "sqlite")
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id string, lock bool) (*domain.Invoice, error) {
	var invoice domain.Invoice
	stmt := db.WithContext(ctx).Preload("Items", orderItems)
	if lock {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Where("id = ?", id).Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).Preload("Items", orderItems)
	if filter.CustomerID != "" {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.SerialPrefix != "" {
		stmt = stmt.Where("serial_number LIKE ?", stripLikeWildcards(filter.SerialPrefix)+"%")
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("invoice_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("invoice_date < ?", *filter.DateTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListSerialsWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	var serials []string
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("serial_number LIKE ?", stripLikeWildcards(prefix)+"%").
		Pluck("serial_number", &serials).Error
	if err != nil {
		return nil, err
	}
	return serials, nil
}

func (r *repo) ListForPeriod(ctx context.Context, db *gorm.DB, from, to time.Time, customerID string, statuses []domain.Status) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	stmt := db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("invoice_date >= ? AND invoice_date < ?", from, to)
	if customerID != "" {
		stmt = stmt.Where("customer_id = ?", customerID)
	}
	if len(statuses) > 0 {
		stmt = stmt.Where("status IN ?", statuses)
	}
	if err := stmt.Order("invoice_date asc, serial_number asc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&domain.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Invoice{}).Error
	})
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

func stripLikeWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
