package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/statement/internal/audit/domain"
	"github.com/smallbiznis/statement/pkg/db/pagination"
	"go.uber.org/zap"
)

// audit records a successful mutation. Failures are logged and never
// surface to the caller.
func (s *Server) audit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}

	actor := auditdomain.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if principal, ok := principalFromContext(c); ok {
		actor.UserID = principal.UserID
		actor.Username = principal.Username
	}

	var target *string
	if id := strings.TrimSpace(targetID); id != "" {
		target = &id
	}

	if err := s.auditSvc.AuditLog(c.Request.Context(), actor, action, targetType, target, metadata); err != nil {
		s.log.Warn("audit log dropped", zap.String("action", action), zap.Error(err))
	}
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var query struct {
		pagination.Pagination
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		ActorID    string `form:"actor_id"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	startAt, err := parseOptionalDate(query.StartAt, s.location())
	if err != nil {
		AbortWithError(c, auditdomain.ErrInvalidTimeRange)
		return
	}
	endAt, err := parseOptionalDate(query.EndAt, s.location())
	if err != nil {
		AbortWithError(c, auditdomain.ErrInvalidTimeRange)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorID:    strings.TrimSpace(query.ActorID),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
