package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/statement/internal/audit/domain"
	authdomain "github.com/smallbiznis/statement/internal/auth/domain"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&productdomain.Product{},
		&pricingdomain.PricingRule{},
		&pricingdomain.PricingTier{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&authdomain.User{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date: versioned SQL on postgres, AutoMigrate
// on the other dialects.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if strings.EqualFold(conn.Dialector.Name(), "postgres") {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return conn.AutoMigrate(Models()...)
}

// RunMigrations applies the embedded SQL migrations to a postgres handle.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
