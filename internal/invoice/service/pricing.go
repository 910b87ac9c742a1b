package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
)

// PriceSourceManual marks a line whose unit price was typed in by staff.
const PriceSourceManual = "manual"

// priceItems turns the entered lines into persisted items. Lines without an
// explicit unit price are quoted through the pricing rules for customerID.
func (s *Service) priceItems(ctx context.Context, customerID, invoiceID string, inputs []invoicedomain.ItemInput) ([]invoicedomain.InvoiceItem, decimal.Decimal, error) {
	total := decimal.Zero
	if len(inputs) == 0 {
		return []invoicedomain.InvoiceItem{}, total, nil
	}

	catalog, err := s.loadProducts(ctx, inputs)
	if err != nil {
		return nil, total, err
	}

	items := make([]invoicedomain.InvoiceItem, 0, len(inputs))
	for i, input := range inputs {
		if input.Quantity <= 0 {
			return nil, total, invoicedomain.ErrInvalidQuantity
		}

		productID := strings.TrimSpace(input.ProductID)
		specification := strings.TrimSpace(input.Specification)
		description := strings.TrimSpace(input.Description)
		if description == "" {
			if product, ok := catalog[productID]; ok {
				description = product.Name
			}
		}
		if description == "" {
			return nil, total, invoicedomain.ErrInvalidItem
		}

		item := invoicedomain.InvoiceItem{
			ID:            s.genID.Generate().String(),
			InvoiceID:     invoiceID,
			Position:      i,
			Description:   description,
			Specification: specification,
			Quantity:      input.Quantity,
		}
		if productID != "" {
			item.ProductID = &productID
		}

		switch {
		case input.UnitPrice != nil:
			if input.UnitPrice.IsNegative() {
				return nil, total, invoicedomain.ErrInvalidUnitPrice
			}
			item.UnitPrice = *input.UnitPrice
			item.PriceSource = PriceSourceManual
		case productID == "":
			return nil, total, invoicedomain.ErrInvalidItem
		default:
			if _, ok := catalog[productID]; !ok {
				return nil, total, invoicedomain.ErrInvalidItem
			}
			quote, err := s.pricing.Quote(ctx, pricingdomain.QuoteRequest{
				ProductID:     productID,
				Quantity:      input.Quantity,
				Specification: specification,
				CustomerID:    customerID,
			})
			if err != nil {
				return nil, total, err
			}
			item.UnitPrice = quote.UnitPrice
			item.PriceSource = quote.Source
			if quote.RuleID != "" {
				ruleID := quote.RuleID
				item.RuleID = &ruleID
			}
		}

		item.Amount = item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)).Round(2)
		total = total.Add(item.Amount)
		items = append(items, item)
	}

	return items, total, nil
}

func (s *Service) loadProducts(ctx context.Context, inputs []invoicedomain.ItemInput) (map[string]productdomain.Product, error) {
	seen := make(map[string]struct{}, len(inputs))
	ids := make([]string, 0, len(inputs))
	for _, input := range inputs {
		id := strings.TrimSpace(input.ProductID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	catalog := make(map[string]productdomain.Product, len(ids))
	if len(ids) == 0 {
		return catalog, nil
	}

	products, err := s.products.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		catalog[product.ID] = product
	}
	return catalog, nil
}
