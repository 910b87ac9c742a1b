package domain

import (
	"github.com/shopspring/decimal"
)

// Level identifies which step of the cascade produced a price.
type Level int

const (
	LevelNone Level = iota
	LevelCustomerSpecification
	LevelCustomer
	LevelCategorySpecification
	LevelCategory
	LevelGeneralSpecification
	LevelGeneral
	LevelFallback
)

func (l Level) String() string {
	switch l {
	case LevelCustomerSpecification:
		return "customer_specification"
	case LevelCustomer:
		return "customer"
	case LevelCategorySpecification:
		return "category_specification"
	case LevelCategory:
		return "category"
	case LevelGeneralSpecification:
		return "general_specification"
	case LevelGeneral:
		return "general"
	case LevelFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Query is the buyer and line item context a price is resolved for.
// Empty strings mean the caller did not supply that piece of context.
type Query struct {
	ProductID     string
	Quantity      int64
	Specification string
	CustomerID    string
	PriceCategory string
}

// Resolution is the outcome of ResolvePrice. Found is false when the
// product has no active rule; callers then fall back to the catalog price.
type Resolution struct {
	Price  decimal.Decimal
	RuleID string
	Level  Level
	Found  bool
}

type cascadeStep struct {
	level Level
	// applies reports whether the query carries the context this step needs.
	applies func(q Query) bool
	match   func(q Query, r PricingRule) bool
}

var cascade = []cascadeStep{
	{
		level:   LevelCustomerSpecification,
		applies: func(q Query) bool { return q.CustomerID != "" && q.Specification != "" },
		match: func(q Query, r PricingRule) bool {
			return r.customerIs(q.CustomerID) && r.specificationIs(q.Specification)
		},
	},
	{
		level:   LevelCustomer,
		applies: func(q Query) bool { return q.CustomerID != "" },
		match: func(q Query, r PricingRule) bool {
			return r.customerIs(q.CustomerID) && !r.HasSpecification()
		},
	},
	{
		level:   LevelCategorySpecification,
		applies: func(q Query) bool { return q.PriceCategory != "" && q.Specification != "" },
		match: func(q Query, r PricingRule) bool {
			return r.categoryIs(q.PriceCategory) && !r.HasCustomer() && r.specificationIs(q.Specification)
		},
	},
	{
		level:   LevelCategory,
		applies: func(q Query) bool { return q.PriceCategory != "" },
		match: func(q Query, r PricingRule) bool {
			return r.categoryIs(q.PriceCategory) && !r.HasCustomer() && !r.HasSpecification()
		},
	},
	{
		level:   LevelGeneralSpecification,
		applies: func(q Query) bool { return q.Specification != "" },
		match: func(q Query, r PricingRule) bool {
			return !r.HasCategory() && !r.HasCustomer() && r.specificationIs(q.Specification)
		},
	},
	{
		level:   LevelGeneral,
		applies: func(Query) bool { return true },
		match: func(q Query, r PricingRule) bool {
			return !r.HasCategory() && !r.HasCustomer() && !r.HasSpecification()
		},
	},
}

// ResolvePrice returns the unit price for q by walking the cascade from the
// most specific scope to the most general one. Every step rescans all active
// rules of the product and the first rule satisfying it wins. When no step
// matches, the first active rule is used. It never fails: a product without
// active rules yields a Resolution with Found set to false.
func ResolvePrice(q Query, rules []PricingRule) Resolution {
	candidates := make([]PricingRule, 0, len(rules))
	for _, r := range rules {
		if r.ProductID == q.ProductID && r.IsActive {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return Resolution{Level: LevelNone}
	}

	for _, step := range cascade {
		if !step.applies(q) {
			continue
		}
		for _, r := range candidates {
			if step.match(q, r) {
				return resolved(r, q.Quantity, step.level)
			}
		}
	}

	return resolved(candidates[0], q.Quantity, LevelFallback)
}

// MatchLevel reports which cascade step r would satisfy for q, ignoring the
// other rules. It returns LevelNone when r is inactive, prices another
// product or satisfies no step.
func MatchLevel(q Query, r PricingRule) Level {
	if !r.IsActive || r.ProductID != q.ProductID {
		return LevelNone
	}
	for _, step := range cascade {
		if step.applies(q) && step.match(q, r) {
			return step.level
		}
	}
	return LevelNone
}

func resolved(r PricingRule, quantity int64, level Level) Resolution {
	return Resolution{
		Price:  FindPriceInTiers(r.Tiers, quantity, r.BasePrice),
		RuleID: r.ID,
		Level:  level,
		Found:  true,
	}
}
