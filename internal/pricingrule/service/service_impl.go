package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/statement/internal/cache"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	"github.com/smallbiznis/statement/internal/observability/metrics"
	"github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Customers customerdomain.Repository
	Products  productdomain.Repository
	Cache     cache.RuleCache  `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	customers customerdomain.Repository
	products  productdomain.Repository
	cache     cache.RuleCache
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	ruleCache := p.Cache
	if ruleCache == nil {
		ruleCache = cache.NewMemoryRuleCache()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pricingrule.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		customers: p.Customers,
		products:  p.Products,
		cache:     ruleCache,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.RuleRequest) (*domain.Response, error) {
	rule := &domain.PricingRule{ID: s.genID.Generate().String()}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rule.IsActive = true
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.Tiers = s.buildTiers(rule.ID, req.Tiers)

	if err := s.repo.Insert(ctx, s.db, rule); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rule.ProductID)

	s.log.Info("pricing rule created",
		zap.String("rule_id", rule.ID),
		zap.String("product_id", rule.ProductID),
		zap.Int("tiers", len(rule.Tiers)),
	)
	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.RuleRequest) (*domain.Response, error) {
	rule, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	previousProduct := rule.ProductID

	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = time.Now().UTC()
	tiers := s.buildTiers(rule.ID, req.Tiers)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, rule); err != nil {
			return err
		}
		return s.repo.ReplaceTiers(ctx, tx, rule.ID, tiers)
	})
	if err != nil {
		return nil, err
	}
	rule.Tiers = tiers

	s.cache.Invalidate(ctx, previousProduct)
	if previousProduct != rule.ProductID {
		s.cache.Invalidate(ctx, rule.ProductID)
	}

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	rule, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.RepositoryFilter{
		ProductID:     strings.TrimSpace(req.ProductID),
		CustomerID:    strings.TrimSpace(req.CustomerID),
		PriceCategory: strings.TrimSpace(req.PriceCategory),
		Active:        req.Active,
	}
	rules, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(rules))
	for i := range rules {
		resp = append(resp, toResponse(&rules[i]))
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	rule, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, rule.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, rule.ProductID)
	return nil
}

func (s *Service) Toggle(ctx context.Context, id string) (*domain.Response, error) {
	rule, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	rule.IsActive = !rule.IsActive
	rule.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, rule.ProductID)

	resp := toResponse(rule)
	return &resp, nil
}

// Quote prices quantity units of a product for a customer. The customer's
// tier acts as the price category. When no active rule exists for the
// product the catalog list price is used.
func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResponse, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return nil, domain.ErrInvalidProduct
	}
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.products.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrInvalidProduct
	}

	query := domain.Query{
		ProductID:     productID,
		Quantity:      req.Quantity,
		Specification: strings.TrimSpace(req.Specification),
		CustomerID:    strings.TrimSpace(req.CustomerID),
	}
	if query.CustomerID != "" {
		customer, err := s.customers.FindByID(ctx, s.db, query.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, domain.ErrInvalidCustomer
		}
		query.PriceCategory = string(customer.CustomerTier)
	}

	rules, err := s.activeRules(ctx, productID)
	if err != nil {
		return nil, err
	}

	resolution := domain.ResolvePrice(query, rules)
	resp := &domain.QuoteResponse{
		ProductID:     productID,
		Quantity:      req.Quantity,
		Specification: query.Specification,
		CustomerID:    query.CustomerID,
		PriceCategory: query.PriceCategory,
		Level:         resolution.Level.String(),
	}
	if resolution.Found {
		resp.UnitPrice = resolution.Price
		resp.RuleID = resolution.RuleID
		resp.Source = domain.SourceRule
	} else {
		resp.UnitPrice = product.ListPrice
		resp.Source = domain.SourceCatalog
	}
	resp.Amount = resp.UnitPrice.Mul(decimal.NewFromInt(req.Quantity)).Round(2)

	s.metrics.RecordPriceQuote(ctx, resp.Level, resp.Source)
	return resp, nil
}

func (s *Service) activeRules(ctx context.Context, productID string) ([]domain.PricingRule, error) {
	if rules, ok := s.cache.GetRules(ctx, productID); ok {
		return rules, nil
	}
	rules, err := s.repo.ListActiveByProduct(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	s.cache.SetRules(ctx, productID, rules)
	return rules, nil
}

// apply validates req and copies it onto rule. A customer-scoped rule never
// carries a price category.
func (s *Service) apply(ctx context.Context, rule *domain.PricingRule, req domain.RuleRequest) error {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return domain.ErrInvalidProduct
	}
	product, err := s.products.FindByID(ctx, s.db, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrInvalidProduct
	}

	if req.BasePrice.IsNegative() {
		return domain.ErrInvalidBasePrice
	}
	if err := domain.ValidateTiers(req.Tiers); err != nil {
		return err
	}

	customerID := optional(req.CustomerID)
	category := optional(req.PriceCategory)
	if customerID != nil {
		customer, err := s.customers.FindByID(ctx, s.db, *customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}
		category = nil
	}
	if category != nil {
		tier, ok := customerdomain.ParseTier(*category)
		if !ok {
			return domain.ErrInvalidPriceCategory
		}
		value := string(tier)
		category = &value
	}

	rule.ProductID = productID
	rule.Name = strings.TrimSpace(req.Name)
	rule.CustomerID = customerID
	rule.PriceCategory = category
	rule.Specification = optional(req.Specification)
	rule.BasePrice = req.BasePrice
	return nil
}

func (s *Service) buildTiers(ruleID string, inputs []domain.TierInput) []domain.PricingTier {
	tiers := make([]domain.PricingTier, 0, len(inputs))
	for _, in := range inputs {
		tiers = append(tiers, domain.PricingTier{
			ID:          s.genID.Generate().String(),
			RuleID:      ruleID,
			MinQuantity: in.MinQuantity,
			MaxQuantity: in.MaxQuantity,
			Price:       in.Price,
		})
	}
	tiers = domain.SortTiers(tiers)
	for i := range tiers {
		tiers[i].Position = i
	}
	return tiers
}

func (s *Service) find(ctx context.Context, id string) (*domain.PricingRule, error) {
	ruleID := strings.TrimSpace(id)
	if ruleID == "" {
		return nil, domain.ErrInvalidID
	}
	rule, err := s.repo.FindByID(ctx, s.db, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func toResponse(rule *domain.PricingRule) domain.Response {
	tiers := domain.SortTiers(rule.Tiers)
	out := make([]domain.TierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, domain.TierResponse{
			MinQuantity: t.MinQuantity,
			MaxQuantity: t.MaxQuantity,
			Price:       t.Price,
		})
	}
	return domain.Response{
		ID:            rule.ID,
		Name:          rule.Name,
		ProductID:     rule.ProductID,
		CustomerID:    rule.CustomerID,
		PriceCategory: rule.PriceCategory,
		Specification: rule.Specification,
		BasePrice:     rule.BasePrice,
		Tiers:         out,
		IsActive:      rule.IsActive,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
	}
}

func optional(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
