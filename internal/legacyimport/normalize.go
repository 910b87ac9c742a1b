package legacyimport

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	"github.com/smallbiznis/statement/internal/signature"
	"gorm.io/datatypes"
)

var (
	ErrMissingSerial  = errors.New("missing_serial_number")
	ErrMissingName    = errors.New("missing_name")
	ErrMissingProduct = errors.New("missing_product_id")
	ErrBadDate        = errors.New("unparseable_date")
)

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006/01/02"}

// ToCustomer maps a legacy customer. The stored tier is the effective tier so
// that documents carrying only a price category keep their serial prefix.
func ToCustomer(id string, doc CustomerDoc, now time.Time) (*customerdomain.Customer, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, ErrMissingName
	}
	return &customerdomain.Customer{
		ID:                id,
		Name:              name,
		ContactPerson:     strings.TrimSpace(doc.ContactPerson),
		Phone:             strings.TrimSpace(doc.Phone),
		Email:             strings.TrimSpace(doc.Email),
		Address:           strings.TrimSpace(doc.Address),
		TaxID:             strings.TrimSpace(doc.TaxID),
		CustomerTier:      customerdomain.EffectiveTier(doc.CustomerTier, doc.PriceCategory),
		PriceCategory:     blankToNil(doc.PriceCategory),
		StartSerialNumber: blankToNil(doc.StartSerialNumber),
		CreatedAt:         orNow(doc.CreatedAt, now),
		UpdatedAt:         orNow(doc.UpdatedAt, now),
	}, nil
}

// ToProduct maps a legacy product. Products without an active flag are active.
func ToProduct(id string, doc ProductDoc, now time.Time) (*productdomain.Product, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, ErrMissingName
	}
	active := true
	if doc.Active != nil {
		active = *doc.Active
	}
	specs := make([]string, 0, len(doc.Specifications))
	for _, s := range doc.Specifications {
		if s = strings.TrimSpace(s); s != "" {
			specs = append(specs, s)
		}
	}
	return &productdomain.Product{
		ID:             id,
		Name:           name,
		Unit:           strings.TrimSpace(doc.Unit),
		Description:    blankToNil(&doc.Description),
		ListPrice:      money(doc.Price),
		Specifications: datatypes.JSONSlice[string](specs),
		Active:         active,
		CreatedAt:      orNow(doc.CreatedAt, now),
		UpdatedAt:      orNow(doc.UpdatedAt, now),
	}, nil
}

// ToPricingRule maps a legacy rule with its tiers sorted by minimum quantity.
func ToPricingRule(id string, doc PricingRuleDoc, now time.Time) (*pricingdomain.PricingRule, error) {
	productID := strings.TrimSpace(doc.ProductID)
	if productID == "" {
		return nil, ErrMissingProduct
	}
	active := true
	if doc.IsActive != nil {
		active = *doc.IsActive
	}

	tiers := make([]pricingdomain.PricingTier, 0, len(doc.Tiers))
	for _, t := range doc.Tiers {
		tier := pricingdomain.PricingTier{
			RuleID:      id,
			MinQuantity: int64(math.Round(t.MinQuantity)),
			Price:       money(t.Price),
		}
		if t.MaxQuantity != nil {
			upper := int64(math.Round(*t.MaxQuantity))
			tier.MaxQuantity = &upper
		}
		tiers = append(tiers, tier)
	}
	tiers = pricingdomain.SortTiers(tiers)
	for i := range tiers {
		tiers[i].ID = fmt.Sprintf("%s-%d", id, i)
		tiers[i].Position = i
	}

	var category *string
	if c := blankToNil(doc.PriceCategory); c != nil {
		lowered := strings.ToLower(*c)
		category = &lowered
	}

	return &pricingdomain.PricingRule{
		ID:            id,
		ProductID:     productID,
		Name:          strings.TrimSpace(doc.Name),
		CustomerID:    blankToNil(doc.CustomerID),
		PriceCategory: category,
		Specification: blankToNil(doc.Specification),
		BasePrice:     money(doc.BasePrice),
		IsActive:      active,
		Tiers:         tiers,
		CreatedAt:     orNow(doc.CreatedAt, now),
		UpdatedAt:     orNow(doc.UpdatedAt, now),
	}, nil
}

// ToInvoice maps a legacy statement. Serial numbers are kept verbatim, even
// when they do not follow the current format. Line amounts missing in the
// source are recomputed from quantity and unit price.
func ToInvoice(id string, doc InvoiceDoc, loc *time.Location, now time.Time) (*invoicedomain.Invoice, error) {
	serial := strings.TrimSpace(doc.SerialNumber)
	if serial == "" {
		return nil, ErrMissingSerial
	}

	date, err := invoiceDate(doc.Date, doc.CreatedAt, loc)
	if err != nil {
		return nil, err
	}

	items := make([]invoicedomain.InvoiceItem, 0, len(doc.Items))
	total := decimal.Zero
	for i, it := range doc.Items {
		qty := int64(math.Round(it.Quantity))
		unit := money(it.UnitPrice)
		amount := money(it.Amount)
		if amount.IsZero() {
			amount = unit.Mul(decimal.NewFromInt(qty)).Round(2)
		}
		item := invoicedomain.InvoiceItem{
			ID:            fmt.Sprintf("%s-%d", id, i),
			InvoiceID:     id,
			Position:      i,
			ProductID:     blankToNil(&it.ProductID),
			Description:   strings.TrimSpace(it.Description),
			Specification: strings.TrimSpace(it.Specification),
			Quantity:      qty,
			UnitPrice:     unit,
			Amount:        amount,
			PriceSource:   "legacy",
		}
		total = total.Add(amount)
		items = append(items, item)
	}
	if doc.TotalAmount != 0 {
		total = money(doc.TotalAmount)
	}

	var sig *string
	if doc.SignatureBase64 != nil && strings.TrimSpace(*doc.SignatureBase64) != "" {
		raw := strings.TrimSpace(*doc.SignatureBase64)
		if normalized, err := signature.Normalize(raw); err == nil {
			raw = normalized
		}
		sig = &raw
	}

	var signedAt *time.Time
	if doc.SignedAt != nil && !doc.SignedAt.IsZero() {
		t := doc.SignedAt.UTC()
		signedAt = &t
	}

	return &invoicedomain.Invoice{
		ID:           id,
		SerialNumber: serial,
		CustomerID:   strings.TrimSpace(doc.CustomerID),
		CustomerName: strings.TrimSpace(doc.CustomerName),
		InvoiceDate:  date,
		Items:        items,
		TotalAmount:  total,
		Status:       invoiceStatus(doc.Status, sig != nil),
		Signature:    sig,
		SignedAt:     signedAt,
		Note:         strings.TrimSpace(doc.Note),
		CreatedAt:    orNow(doc.CreatedAt, now),
		UpdatedAt:    orNow(doc.UpdatedAt, now),
	}, nil
}

func invoiceStatus(raw string, signed bool) invoicedomain.Status {
	status := invoicedomain.Status(strings.ToLower(strings.TrimSpace(raw)))
	if status.Valid() {
		return status
	}
	if signed {
		return invoicedomain.StatusCompleted
	}
	return invoicedomain.StatusPending
}

// invoiceDate returns the calendar day in loc stored as UTC midnight. The
// source holds either a timestamp or a date string.
func invoiceDate(raw any, createdAt time.Time, loc *time.Location) (time.Time, error) {
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		v = strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			parsed, err := time.ParseInLocation(layout, v, loc)
			if err == nil {
				t = parsed
				break
			}
		}
		if t.IsZero() && v != "" {
			return time.Time{}, ErrBadDate
		}
	}
	if t.IsZero() {
		t = createdAt
	}
	if t.IsZero() {
		return time.Time{}, ErrBadDate
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
