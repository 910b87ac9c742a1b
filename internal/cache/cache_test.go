package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 50*time.Millisecond)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.Eventually(t, func() bool {
		_, ok := c.Get("a")
		return !ok
	}, time.Second, 10*time.Millisecond)

	v, ok = c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestTTLCacheHitDoesNotExtendLifetime(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 80*time.Millisecond)

	// Reading every few milliseconds must not keep the entry alive.
	require.Eventually(t, func() bool {
		_, ok := c.Get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryRuleCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRuleCache()

	_, ok := c.GetRules(ctx, "P1")
	assert.False(t, ok)

	rules := []pricingdomain.PricingRule{{ID: "r1", ProductID: "P1", BasePrice: decimal.NewFromInt(10), IsActive: true}}
	c.SetRules(ctx, "P1", rules)
	rules[0].ID = "mutated"

	got, ok := c.GetRules(ctx, " P1 ")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	c.SetRules(ctx, "P2", nil)
	empty, ok := c.GetRules(ctx, "P2")
	assert.True(t, ok)
	assert.Empty(t, empty)

	c.Invalidate(ctx, "P1")
	_, ok = c.GetRules(ctx, "P1")
	assert.False(t, ok)
}

func TestRuleEncodingRoundTripKeepsTiers(t *testing.T) {
	max := int64(9)
	rules := []pricingdomain.PricingRule{{
		ID:        "r1",
		ProductID: "P1",
		BasePrice: decimal.RequireFromString("99.50"),
		IsActive:  true,
		Tiers: []pricingdomain.PricingTier{
			{MinQuantity: 1, MaxQuantity: &max, Price: decimal.RequireFromString("90")},
			{MinQuantity: 10, Price: decimal.RequireFromString("80")},
		},
	}}

	raw, err := encodeRules(rules)
	require.NoError(t, err)
	decoded, err := decodeRules(raw)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Len(t, decoded[0].Tiers, 2)
	assert.True(t, decimal.RequireFromString("99.5").Equal(decoded[0].BasePrice))
	assert.Nil(t, decoded[0].Tiers[1].MaxQuantity)

	empty, err := encodeRules(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestNewRuleCacheFallsBackToMemory(t *testing.T) {
	c := NewRuleCache(nil, zap.NewNop())
	_, ok := c.(*memoryRuleCache)
	assert.True(t, ok)
	assert.Equal(t, "statement:pricing_rules:P1", ruleKey(" P1 "))
}
