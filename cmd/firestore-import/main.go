package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smallbiznis/statement/internal/cache"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/smallbiznis/statement/internal/config"
	customerrepo "github.com/smallbiznis/statement/internal/customer/repository"
	invoicerepo "github.com/smallbiznis/statement/internal/invoice/repository"
	"github.com/smallbiznis/statement/internal/legacyimport"
	"github.com/smallbiznis/statement/internal/migration"
	"github.com/smallbiznis/statement/internal/observability"
	pricingrepo "github.com/smallbiznis/statement/internal/pricingrule/repository"
	productrepo "github.com/smallbiznis/statement/internal/product/repository"
	"github.com/smallbiznis/statement/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type deps struct {
	fx.In

	Config    config.Config
	Profile   *config.ProfileHolder
	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	RuleCache cache.RuleCache
}

func main() {
	var d deps
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,
		fx.Populate(&d),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := run(d)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		d.Log.Warn("shutdown failed", zap.Error(err))
	}
	os.Exit(code)
}

func run(d deps) int {
	ctx := context.Background()

	src, err := legacyimport.NewFirestoreSource(ctx, d.Config.Firestore)
	if err != nil {
		d.Log.Error("firestore unavailable", zap.Error(err))
		return 1
	}
	defer src.Close()

	importer := legacyimport.New(legacyimport.Options{
		DB:        d.DB,
		Log:       d.Log,
		Clock:     d.Clock,
		Location:  d.Profile.Get().Report.Location(),
		Customers: customerrepo.Provide(),
		Products:  productrepo.Provide(),
		Rules:     pricingrepo.Provide(),
		Invoices:  invoicerepo.Provide(),
		RuleCache: d.RuleCache,
	})

	summary, err := importer.Run(ctx, src)
	if err != nil {
		d.Log.Error("import aborted", zap.Error(err))
		return 1
	}

	d.Log.Info("import finished",
		zap.Int("customers", summary.Customers),
		zap.Int("products", summary.Products),
		zap.Int("pricing_rules", summary.PricingRules),
		zap.Int("invoices", summary.Invoices),
		zap.Int("failures", len(summary.Failures)),
	)
	for _, f := range summary.Failures {
		d.Log.Warn("not imported",
			zap.String("collection", f.Collection),
			zap.String("document_id", f.DocumentID),
			zap.String("reason", f.Reason),
		)
	}
	return 0
}
