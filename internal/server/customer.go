package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	"github.com/smallbiznis/statement/pkg/db/pagination"
)

type createCustomerRequest struct {
	Name          string         `json:"name" binding:"required"`
	ContactPerson string         `json:"contact_person"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email" binding:"omitempty,email"`
	Address       string         `json:"address"`
	TaxID         string         `json:"tax_id"`
	CustomerTier  *string        `json:"customer_tier"`
	PriceCategory *string        `json:"price_category"`
	Metadata      map[string]any `json:"metadata"`
}

type updateCustomerRequest struct {
	Name          *string        `json:"name"`
	ContactPerson *string        `json:"contact_person"`
	Phone         *string        `json:"phone"`
	Email         *string        `json:"email" binding:"omitempty,email"`
	Address       *string        `json:"address"`
	TaxID         *string        `json:"tax_id"`
	CustomerTier  *string        `json:"customer_tier"`
	Metadata      map[string]any `json:"metadata"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		Address:       strings.TrimSpace(req.Address),
		TaxID:         strings.TrimSpace(req.TaxID),
		CustomerTier:  req.CustomerTier,
		PriceCategory: req.PriceCategory,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "customer.create", "customer", resp.ID, map[string]any{"name": resp.Name})
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name string `form:"name"`
		Tier string `form:"tier"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
		Tier:      strings.TrimSpace(query.Tier),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		TaxID:         req.TaxID,
		CustomerTier:  req.CustomerTier,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "customer.update", "customer", resp.ID, nil)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.customerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.audit(c, "customer.delete", "customer", id, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) PreviewNextSerial(c *gin.Context) {
	resp, err := s.invoiceSvc.NextSerialPreview(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidTier,
		customerdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
