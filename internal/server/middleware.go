package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/statement/internal/auth/domain"
	obscontext "github.com/smallbiznis/statement/internal/observability/context"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// AuthRequired accepts a bearer access token and stores the principal on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextPrincipalKey, principal)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), principal.UserID))
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func principalFromContext(c *gin.Context) (*authdomain.Principal, bool) {
	v, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*authdomain.Principal)
	return principal, ok && principal != nil
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object, action string) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), string(principal.Role), object, action)
}

// LoginRateLimit throttles login attempts per client address.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.loginLimiter == nil || !s.loginLimiter.Enabled() {
			c.Next()
			return
		}

		result := s.loginLimiter.Allow(c.Request.Context(), c.ClientIP())
		if result == nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retry := int(result.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			s.log.Warn("login throttled", zap.String("client_ip", c.ClientIP()))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
