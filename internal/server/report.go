package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/statement/internal/authorization"
	reportdomain "github.com/smallbiznis/statement/internal/report/domain"
)

// RevenueReport answers with JSON by default. Any other format is a file
// download and needs the export grant.
func (s *Server) RevenueReport(c *gin.Context) {
	var query struct {
		Period        string `form:"period" binding:"required"`
		Key           string `form:"key" binding:"required"`
		CustomerID    string `form:"customer_id"`
		IncludeDrafts string `form:"include_drafts"`
		Format        string `form:"format"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	includeDrafts, err := parseOptionalBool(query.IncludeDrafts)
	if err != nil {
		AbortWithError(c, newValidationError("include_drafts", "invalid_include_drafts", "invalid include_drafts"))
		return
	}

	req := reportdomain.RevenueRequest{
		PeriodType:    strings.TrimSpace(query.Period),
		Key:           strings.TrimSpace(query.Key),
		CustomerID:    strings.TrimSpace(query.CustomerID),
		IncludeDrafts: includeDrafts != nil && *includeDrafts,
	}

	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" || format == string(reportdomain.FormatJSON) {
		report, err := s.reportSvc.Revenue(c.Request.Context(), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report})
		return
	}

	if err := s.authorizeWithContext(c, authorization.ObjectReport, authorization.ActionExport); err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.reportSvc.Export(c.Request.Context(), reportdomain.ExportRequest{
		RevenueRequest: req,
		Format:         format,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeDocument(c, doc.Filename, doc.ContentType, doc.Content)
}
