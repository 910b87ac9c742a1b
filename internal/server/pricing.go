package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
)

func (s *Server) ListPricingRules(c *gin.Context) {
	var query struct {
		ProductID     string `form:"product_id"`
		CustomerID    string `form:"customer_id"`
		PriceCategory string `form:"price_category"`
		Active        string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.pricingSvc.List(c.Request.Context(), pricingdomain.ListRequest{
		ProductID:     strings.TrimSpace(query.ProductID),
		CustomerID:    strings.TrimSpace(query.CustomerID),
		PriceCategory: strings.TrimSpace(query.PriceCategory),
		Active:        active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePricingRule(c *gin.Context) {
	var req pricingdomain.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.pricingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "pricing_rule.create", "pricing_rule", resp.ID, map[string]any{"product_id": resp.ProductID})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPricingRule(c *gin.Context) {
	resp, err := s.pricingSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePricingRule(c *gin.Context) {
	var req pricingdomain.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.pricingSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "pricing_rule.update", "pricing_rule", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePricingRule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.pricingSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.audit(c, "pricing_rule.delete", "pricing_rule", id, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) TogglePricingRule(c *gin.Context) {
	resp, err := s.pricingSvc.Toggle(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "pricing_rule.toggle", "pricing_rule", resp.ID, map[string]any{"is_active": resp.IsActive})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type quoteRequest struct {
	ProductID     string `json:"product_id" binding:"required"`
	Quantity      int64  `json:"quantity" binding:"required,gt=0"`
	Specification string `json:"specification"`
	CustomerID    string `json:"customer_id"`
}

func (s *Server) QuotePrice(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.pricingSvc.Quote(c.Request.Context(), pricingdomain.QuoteRequest{
		ProductID:     strings.TrimSpace(req.ProductID),
		Quantity:      req.Quantity,
		Specification: strings.TrimSpace(req.Specification),
		CustomerID:    strings.TrimSpace(req.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPricingValidationError(err error) bool {
	switch err {
	case pricingdomain.ErrInvalidID,
		pricingdomain.ErrInvalidProduct,
		pricingdomain.ErrInvalidCustomer,
		pricingdomain.ErrInvalidPriceCategory,
		pricingdomain.ErrInvalidBasePrice,
		pricingdomain.ErrInvalidQuantity,
		pricingdomain.ErrTooManyTiers,
		pricingdomain.ErrInvalidTierRange,
		pricingdomain.ErrInvalidTierPrice,
		pricingdomain.ErrOverlappingTiers,
		pricingdomain.ErrUnboundedTier:
		return true
	default:
		return false
	}
}
