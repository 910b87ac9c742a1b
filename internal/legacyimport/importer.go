// Package legacyimport copies the legacy document store into the relational
// schema.
package legacyimport

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/statement/internal/cache"
	"github.com/smallbiznis/statement/internal/clock"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Failure records a document that could not be imported.
type Failure struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// Summary counts imported documents per collection.
type Summary struct {
	Customers    int       `json:"customers"`
	Products     int       `json:"products"`
	PricingRules int       `json:"pricing_rules"`
	Invoices     int       `json:"invoices"`
	Failures     []Failure `json:"failures"`
}

type Importer struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	location  *time.Location
	customers customerdomain.Repository
	products  productdomain.Repository
	rules     pricingdomain.Repository
	invoices  invoicedomain.Repository
	ruleCache cache.RuleCache
}

type Options struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Location  *time.Location
	Customers customerdomain.Repository
	Products  productdomain.Repository
	Rules     pricingdomain.Repository
	Invoices  invoicedomain.Repository
	// RuleCache is invalidated for every product whose rules were written.
	RuleCache cache.RuleCache
}

func New(opts Options) *Importer {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{
		db:        opts.DB,
		log:       log.Named("legacyimport"),
		clock:     clk,
		location:  loc,
		customers: opts.Customers,
		products:  opts.Products,
		rules:     opts.Rules,
		invoices:  opts.Invoices,
		ruleCache: opts.RuleCache,
	}
}

// Run imports customers, products, pricing rules and invoices in that order.
// Per-document problems are collected in the summary; only source read
// errors abort the run.
func (i *Importer) Run(ctx context.Context, src Source) (*Summary, error) {
	summary := &Summary{Failures: []Failure{}}

	steps := []struct {
		collection string
		fn         func(context.Context, string, DecodeFunc) error
		count      *int
	}{
		{CollectionCustomers, i.importCustomer, &summary.Customers},
		{CollectionProducts, i.importProduct, &summary.Products},
		{CollectionPricingRules, i.importRule, &summary.PricingRules},
		{CollectionInvoices, i.importInvoice, &summary.Invoices},
	}

	for _, step := range steps {
		err := src.Each(ctx, step.collection, func(id string, decode DecodeFunc) error {
			if err := step.fn(ctx, id, decode); err != nil {
				summary.Failures = append(summary.Failures, Failure{
					Collection: step.collection,
					DocumentID: id,
					Reason:     err.Error(),
				})
				i.log.Warn("document skipped",
					zap.String("collection", step.collection),
					zap.String("document_id", id),
					zap.Error(err),
				)
				return nil
			}
			*step.count++
			return nil
		})
		if err != nil {
			return summary, err
		}
		i.log.Info("collection imported",
			zap.String("collection", step.collection),
			zap.Int("count", *step.count),
		)
	}

	return summary, nil
}

func (i *Importer) importCustomer(ctx context.Context, id string, decode DecodeFunc) error {
	var doc CustomerDoc
	if err := decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	customer, err := ToCustomer(id, doc, i.clock.Now())
	if err != nil {
		return err
	}
	return i.customers.Upsert(ctx, i.db, customer)
}

func (i *Importer) importProduct(ctx context.Context, id string, decode DecodeFunc) error {
	var doc ProductDoc
	if err := decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	product, err := ToProduct(id, doc, i.clock.Now())
	if err != nil {
		return err
	}
	return i.products.Upsert(ctx, i.db, product)
}

func (i *Importer) importRule(ctx context.Context, id string, decode DecodeFunc) error {
	var doc PricingRuleDoc
	if err := decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	rule, err := ToPricingRule(id, doc, i.clock.Now())
	if err != nil {
		return err
	}

	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := i.rules.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return i.rules.Insert(ctx, tx, rule)
		}
		tiers := rule.Tiers
		if err := i.rules.Update(ctx, tx, rule); err != nil {
			return err
		}
		return i.rules.ReplaceTiers(ctx, tx, id, tiers)
	})
	if err != nil {
		return err
	}

	if i.ruleCache != nil {
		i.ruleCache.Invalidate(ctx, rule.ProductID)
	}
	return nil
}

func (i *Importer) importInvoice(ctx context.Context, id string, decode DecodeFunc) error {
	var doc InvoiceDoc
	if err := decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	invoice, err := ToInvoice(id, doc, i.location, i.clock.Now())
	if err != nil {
		return err
	}

	// Some early statements only carry the customer name.
	if invoice.CustomerID == "" {
		customer, err := i.customers.FindByName(ctx, i.db, invoice.CustomerName)
		if err != nil {
			return err
		}
		if customer == nil {
			return fmt.Errorf("customer %q not found", invoice.CustomerName)
		}
		invoice.CustomerID = customer.ID
	}
	if invoice.CustomerName == "" {
		customer, err := i.customers.FindByID(ctx, i.db, invoice.CustomerID)
		if err != nil {
			return err
		}
		if customer != nil {
			invoice.CustomerName = customer.Name
		}
	}

	return i.invoices.Upsert(ctx, i.db, invoice)
}
