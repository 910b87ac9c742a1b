package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func rule(id string, base int64, opts ...func(*PricingRule)) PricingRule {
	r := PricingRule{
		ID:        id,
		ProductID: "P1",
		BasePrice: decimal.NewFromInt(base),
		IsActive:  true,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func forCustomer(id string) func(*PricingRule) {
	return func(r *PricingRule) { r.CustomerID = strPtr(id) }
}

func forCategory(c string) func(*PricingRule) {
	return func(r *PricingRule) { r.PriceCategory = strPtr(c) }
}

func forSpec(s string) func(*PricingRule) {
	return func(r *PricingRule) { r.Specification = strPtr(s) }
}

func inactive(r *PricingRule) { r.IsActive = false }

func withTiers(tiers ...PricingTier) func(*PricingRule) {
	return func(r *PricingRule) { r.Tiers = tiers }
}

// allLevels holds one rule per cascade step so each step can be exercised by
// removing the more specific ones.
func allLevels() []PricingRule {
	return []PricingRule{
		rule("general", 60),
		rule("general-spec", 50, forSpec("A1")),
		rule("category", 40, forCategory("industry")),
		rule("category-spec", 30, forCategory("industry"), forSpec("A1")),
		rule("customer", 20, forCustomer("C9")),
		rule("customer-spec", 10, forCustomer("C9"), forSpec("A1")),
	}
}

func TestResolvePrice_CascadeOrder(t *testing.T) {
	full := Query{ProductID: "P1", Quantity: 5, Specification: "A1", CustomerID: "C9", PriceCategory: "industry"}

	cases := []struct {
		name      string
		drop      []string
		wantRule  string
		wantLevel Level
		wantPrice int64
	}{
		{name: "customer and specification", wantRule: "customer-spec", wantLevel: LevelCustomerSpecification, wantPrice: 10},
		{name: "customer wildcard", drop: []string{"customer-spec"}, wantRule: "customer", wantLevel: LevelCustomer, wantPrice: 20},
		{name: "category and specification", drop: []string{"customer-spec", "customer"}, wantRule: "category-spec", wantLevel: LevelCategorySpecification, wantPrice: 30},
		{name: "category wildcard", drop: []string{"customer-spec", "customer", "category-spec"}, wantRule: "category", wantLevel: LevelCategory, wantPrice: 40},
		{name: "general specification", drop: []string{"customer-spec", "customer", "category-spec", "category"}, wantRule: "general-spec", wantLevel: LevelGeneralSpecification, wantPrice: 50},
		{name: "general default", drop: []string{"customer-spec", "customer", "category-spec", "category", "general-spec"}, wantRule: "general", wantLevel: LevelGeneral, wantPrice: 60},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := without(allLevels(), tc.drop...)
			got := ResolvePrice(full, rules)
			require.True(t, got.Found)
			assert.Equal(t, tc.wantRule, got.RuleID)
			assert.Equal(t, tc.wantLevel, got.Level)
			assert.True(t, decimal.NewFromInt(tc.wantPrice).Equal(got.Price), "price %s", got.Price)
		})
	}
}

func TestResolvePrice_SkipsStepsWithoutContext(t *testing.T) {
	rules := allLevels()

	noCustomer := ResolvePrice(Query{ProductID: "P1", Quantity: 1, Specification: "A1", PriceCategory: "industry"}, rules)
	assert.Equal(t, "category-spec", noCustomer.RuleID)

	noCategory := ResolvePrice(Query{ProductID: "P1", Quantity: 1, Specification: "A1"}, rules)
	assert.Equal(t, "general-spec", noCategory.RuleID)

	noSpec := ResolvePrice(Query{ProductID: "P1", Quantity: 1, CustomerID: "C9", PriceCategory: "industry"}, rules)
	assert.Equal(t, "customer", noSpec.RuleID)

	nothing := ResolvePrice(Query{ProductID: "P1", Quantity: 1}, rules)
	assert.Equal(t, "general", nothing.RuleID)
}

func TestResolvePrice_CustomerRuleBeatsGeneralRule(t *testing.T) {
	rules := []PricingRule{
		rule("general", 100),
		rule("special", 70, forCustomer("C1")),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 3, CustomerID: "C1"}, rules)
	assert.Equal(t, "special", got.RuleID)
	assert.True(t, decimal.NewFromInt(70).Equal(got.Price))
}

func TestResolvePrice_CategoryRuleBeatsGeneralRule(t *testing.T) {
	rules := []PricingRule{
		rule("general", 100),
		rule("industry", 80, forCategory("industry")),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 3, CustomerID: "C2", PriceCategory: "industry"}, rules)
	assert.Equal(t, "industry", got.RuleID)
	assert.Equal(t, LevelCategory, got.Level)
}

func TestResolvePrice_CategoryRuleWithCustomerIsNotACategoryMatch(t *testing.T) {
	rules := []PricingRule{
		rule("other-customer", 10, forCustomer("C7"), forCategory("industry")),
		rule("general", 100),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 1, CustomerID: "C1", PriceCategory: "industry"}, rules)
	assert.Equal(t, "general", got.RuleID)
}

func TestResolvePrice_FirstRuleWinsWithinLevel(t *testing.T) {
	rules := []PricingRule{
		rule("first", 10, forCustomer("C1")),
		rule("second", 20, forCustomer("C1")),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 1, CustomerID: "C1"}, rules)
	assert.Equal(t, "first", got.RuleID)
}

func TestResolvePrice_FallbackToFirstActiveRule(t *testing.T) {
	rules := []PricingRule{
		rule("disabled", 1, inactive),
		rule("someone-else", 45, forCustomer("C7")),
		rule("other-category", 55, forCategory("kangshiting")),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 1, CustomerID: "C1", PriceCategory: "general"}, rules)
	require.True(t, got.Found)
	assert.Equal(t, "someone-else", got.RuleID)
	assert.Equal(t, LevelFallback, got.Level)
	assert.True(t, decimal.NewFromInt(45).Equal(got.Price))
}

func TestResolvePrice_NotFound(t *testing.T) {
	rules := []PricingRule{
		rule("disabled", 1, inactive),
		{ID: "other-product", ProductID: "P2", BasePrice: decimal.NewFromInt(9), IsActive: true},
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 1}, rules)
	assert.False(t, got.Found)
	assert.Equal(t, LevelNone, got.Level)
	assert.Empty(t, got.RuleID)

	assert.False(t, ResolvePrice(Query{ProductID: "P1", Quantity: 1}, nil).Found)
}

func TestResolvePrice_EmptyTiersReturnBasePriceForAnyQuantity(t *testing.T) {
	rules := []PricingRule{rule("base", 123)}
	for _, q := range []int64{1, 2, 10, 1000, 1_000_000} {
		got := ResolvePrice(Query{ProductID: "P1", Quantity: q}, rules)
		assert.True(t, decimal.NewFromInt(123).Equal(got.Price), "quantity %d", q)
	}
}

func TestResolvePrice_EndToEndExample(t *testing.T) {
	rules := []PricingRule{
		rule("r1", 500, forCustomer("C9"), forSpec("A1")),
		rule("r2", 300, forCategory("industry")),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 5, Specification: "A1", CustomerID: "C9", PriceCategory: "industry"}, rules)
	assert.True(t, decimal.NewFromInt(500).Equal(got.Price))
}

func TestResolvePrice_OutputIsTierOrBasePrice(t *testing.T) {
	tiers := []PricingTier{
		{MinQuantity: 5, MaxQuantity: int64Ptr(9), Price: decimal.NewFromInt(90)},
		{MinQuantity: 10, MaxQuantity: int64Ptr(19), Price: decimal.NewFromInt(80)},
	}
	rules := []PricingRule{rule("tiered", 100, withTiers(tiers...))}

	allowed := []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(90), decimal.NewFromInt(80)}
	for q := int64(1); q <= 40; q++ {
		got := ResolvePrice(Query{ProductID: "P1", Quantity: q}, rules)
		matched := false
		for _, v := range allowed {
			if v.Equal(got.Price) {
				matched = true
				break
			}
		}
		assert.True(t, matched, "quantity %d produced %s", q, got.Price)
	}
}

func TestResolvePrice_BlankOptionalFieldsAreWildcards(t *testing.T) {
	rules := []PricingRule{
		rule("blank", 75, forCustomer(""), forCategory("  "), forSpec("")),
	}
	got := ResolvePrice(Query{ProductID: "P1", Quantity: 1}, rules)
	assert.Equal(t, LevelGeneral, got.Level)
}

func TestMatchLevel(t *testing.T) {
	q := Query{ProductID: "P1", Quantity: 1, Specification: "A1", CustomerID: "C9", PriceCategory: "industry"}
	assert.Equal(t, LevelCustomerSpecification, MatchLevel(q, rule("x", 1, forCustomer("C9"), forSpec("A1"))))
	assert.Equal(t, LevelCategory, MatchLevel(q, rule("x", 1, forCategory("industry"))))
	assert.Equal(t, LevelNone, MatchLevel(q, rule("x", 1, forCustomer("C1"))))
	assert.Equal(t, LevelNone, MatchLevel(q, rule("x", 1, inactive)))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "customer_specification", LevelCustomerSpecification.String())
	assert.Equal(t, "fallback", LevelFallback.String())
	assert.Equal(t, "none", LevelNone.String())
}

func without(rules []PricingRule, ids ...string) []PricingRule {
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	out := make([]PricingRule, 0, len(rules))
	for _, r := range rules {
		if !drop[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
