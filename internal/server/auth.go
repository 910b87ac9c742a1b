package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/statement/internal/auth/domain"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	username := strings.TrimSpace(req.Username)
	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Username: username,
		Password: req.Password,
	})
	if err != nil {
		s.log.Info("login failed", zap.String("username", username), zap.String("client_ip", c.ClientIP()))
		AbortWithError(c, err)
		return
	}

	if result.User != nil {
		c.Set(contextPrincipalKey, &authdomain.Principal{UserID: result.User.ID, Username: result.User.Username, Role: result.User.Role})
		s.audit(c, "auth.login", "user", result.User.ID, nil)
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": principal})
}
