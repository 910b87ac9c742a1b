package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	"go.uber.org/zap"
)

const (
	defaultRuleTTL = 5 * time.Minute
	ruleKeyPrefix  = "statement:pricing_rules:"
)

// RuleCache holds the active pricing rules of a product, in resolver order.
type RuleCache interface {
	GetRules(ctx context.Context, productID string) ([]pricingdomain.PricingRule, bool)
	SetRules(ctx context.Context, productID string, rules []pricingdomain.PricingRule)
	Invalidate(ctx context.Context, productID string)
}

type memoryRuleCache struct {
	rules Cache[string, []pricingdomain.PricingRule]
	ttl   time.Duration
}

// NewMemoryRuleCache returns a per-process rule cache.
func NewMemoryRuleCache() RuleCache {
	return &memoryRuleCache{
		rules: NewTTLCache[string, []pricingdomain.PricingRule](),
		ttl:   defaultRuleTTL,
	}
}

func (c *memoryRuleCache) GetRules(_ context.Context, productID string) ([]pricingdomain.PricingRule, bool) {
	rules, ok := c.rules.Get(strings.TrimSpace(productID))
	if !ok {
		return nil, false
	}
	return append([]pricingdomain.PricingRule(nil), rules...), true
}

func (c *memoryRuleCache) SetRules(_ context.Context, productID string, rules []pricingdomain.PricingRule) {
	c.rules.Set(strings.TrimSpace(productID), append([]pricingdomain.PricingRule(nil), rules...), c.ttl)
}

func (c *memoryRuleCache) Invalidate(_ context.Context, productID string) {
	c.rules.Delete(strings.TrimSpace(productID))
}

type redisRuleCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisRuleCache shares the rule cache across replicas. Redis failures are
// logged and treated as misses.
func NewRedisRuleCache(client *redis.Client, log *zap.Logger) RuleCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &redisRuleCache{client: client, ttl: defaultRuleTTL, log: log.Named("cache.rules")}
}

func (c *redisRuleCache) GetRules(ctx context.Context, productID string) ([]pricingdomain.PricingRule, bool) {
	raw, err := c.client.Get(ctx, ruleKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("rule cache read failed", zap.String("product_id", productID), zap.Error(err))
		return nil, false
	}
	rules, err := decodeRules(raw)
	if err != nil {
		c.log.Warn("rule cache entry corrupt", zap.String("product_id", productID), zap.Error(err))
		return nil, false
	}
	return rules, true
}

func (c *redisRuleCache) SetRules(ctx context.Context, productID string, rules []pricingdomain.PricingRule) {
	raw, err := encodeRules(rules)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ruleKey(productID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("rule cache write failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func (c *redisRuleCache) Invalidate(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, ruleKey(productID)).Err(); err != nil {
		c.log.Warn("rule cache invalidate failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func ruleKey(productID string) string {
	return ruleKeyPrefix + strings.TrimSpace(productID)
}

func encodeRules(rules []pricingdomain.PricingRule) ([]byte, error) {
	if rules == nil {
		rules = []pricingdomain.PricingRule{}
	}
	return json.Marshal(rules)
}

func decodeRules(raw []byte) ([]pricingdomain.PricingRule, error) {
	var rules []pricingdomain.PricingRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
