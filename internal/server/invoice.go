package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
)

type createInvoiceRequest struct {
	CustomerID  string                    `json:"customer_id" binding:"required"`
	InvoiceDate string                    `json:"invoice_date"`
	Note        string                    `json:"note"`
	Items       []invoicedomain.ItemInput `json:"items" binding:"omitempty,dive"`
}

type saveInvoiceRequest struct {
	InvoiceDate string                    `json:"invoice_date"`
	Note        *string                   `json:"note"`
	Items       []invoicedomain.ItemInput `json:"items" binding:"required,min=1,dive"`
}

type signInvoiceRequest struct {
	Signature string `json:"signature" binding:"required"`
}

type batchSignRequest struct {
	IDs       []string `json:"ids" binding:"required,min=1"`
	Signature string   `json:"signature" binding:"required"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	date, err := parseOptionalDate(req.InvoiceDate, s.location())
	if err != nil {
		AbortWithError(c, invoicedomain.ErrInvalidInvoiceDate)
		return
	}

	create := invoicedomain.CreateRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Note:       req.Note,
		Items:      req.Items,
	}
	if date != nil {
		create.InvoiceDate = *date
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.create", "invoice", resp.ID, map[string]any{"serial_number": resp.SerialNumber})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) SaveInvoice(c *gin.Context) {
	var req saveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	date, err := parseOptionalDate(req.InvoiceDate, s.location())
	if err != nil {
		AbortWithError(c, invoicedomain.ErrInvalidInvoiceDate)
		return
	}

	resp, err := s.invoiceSvc.Save(c.Request.Context(), strings.TrimSpace(c.Param("id")), invoicedomain.SaveRequest{
		InvoiceDate: date,
		Note:        req.Note,
		Items:       req.Items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.save", "invoice", resp.ID, map[string]any{"total_amount": resp.TotalAmount.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SignInvoice(c *gin.Context) {
	var req signInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.Sign(c.Request.Context(), strings.TrimSpace(c.Param("id")), invoicedomain.SignRequest{
		Signature: req.Signature,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.sign", "invoice", resp.ID, map[string]any{"serial_number": resp.SerialNumber})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BatchSignInvoices(c *gin.Context) {
	var req batchSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.BatchSign(c.Request.Context(), invoicedomain.BatchSignRequest{
		IDs:       req.IDs,
		Signature: req.Signature,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "invoice.batch_sign", "signature_batch", resp.BatchID, map[string]any{
		"signed": len(resp.Signed),
		"failed": len(resp.Failed),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		PageToken    string `form:"page_token"`
		PageSize     int    `form:"page_size" binding:"gte=0,lte=250"`
		CustomerID   string `form:"customer_id"`
		Status       string `form:"status"`
		SerialPrefix string `form:"serial_prefix"`
		DateFrom     string `form:"date_from"`
		DateTo       string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	loc := s.location()
	from, err := parseOptionalDate(query.DateFrom, loc)
	if err != nil {
		AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
		return
	}
	to, err := parseOptionalDate(query.DateTo, loc)
	if err != nil {
		AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		PageToken:    query.PageToken,
		PageSize:     int32(query.PageSize),
		CustomerID:   strings.TrimSpace(query.CustomerID),
		Status:       strings.TrimSpace(query.Status),
		SerialPrefix: strings.TrimSpace(query.SerialPrefix),
		DateFrom:     dateRangeBound(from, loc, false),
		DateTo:       dateRangeBound(to, loc, true),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.invoiceSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.audit(c, "invoice.delete", "invoice", id, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeDocument(c, doc.Filename, doc.ContentType, doc.Content)
}

func writeDocument(c *gin.Context, filename, contentType string, content []byte) {
	c.DataFromReader(http.StatusOK, int64(len(content)), contentType, bytes.NewReader(content), map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	})
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidCustomer,
		invoicedomain.ErrInvalidInvoiceDate,
		invoicedomain.ErrInvalidItem,
		invoicedomain.ErrInvalidQuantity,
		invoicedomain.ErrInvalidUnitPrice,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidSignature,
		invoicedomain.ErrEmptyBatch:
		return true
	default:
		return false
	}
}
