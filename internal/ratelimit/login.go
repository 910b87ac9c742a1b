package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/statement/internal/config"
	"github.com/smallbiznis/statement/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	keyLoginClient = "statement:ratelimit:login:%s"
	endpointLogin  = "auth.login"
)

// LoginLimiter throttles login attempts per client address. It is inert
// without redis or when disabled in configuration.
type LoginLimiter struct {
	enabled bool

	bucket  *TokenBucket
	rate    float64
	burst   int
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewLoginLimiter(cfg config.Config, client *redis.Client, m *metrics.Metrics, log *zap.Logger) *LoginLimiter {
	limitCfg := cfg.RateLimit
	l := &LoginLimiter{
		rate:    limitCfg.LoginRate,
		burst:   limitCfg.LoginBurst,
		metrics: m,
		log:     log.Named("ratelimit.login"),
	}
	if !limitCfg.Enabled || client == nil {
		return l
	}
	if limitCfg.LoginRate <= 0 || limitCfg.LoginBurst <= 0 {
		l.log.Warn("login rate limit disabled: rate and burst must be positive")
		return l
	}
	l.enabled = true
	l.bucket = NewTokenBucket(client)
	return l
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow consumes one attempt for clientIP. Redis failures let the attempt
// through.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP string) *RateLimitResult {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}
	}

	key := fmt.Sprintf(keyLoginClient, strings.TrimSpace(clientIP))
	result, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.String("client_ip", clientIP), zap.Error(err))
		l.metrics.RecordRateLimitAllowed(ctx, endpointLogin)
		return &RateLimitResult{Allowed: true, Limit: l.burst}
	}

	if result.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, endpointLogin)
	} else {
		l.metrics.RecordRateLimitDenied(ctx, endpointLogin, "token_bucket")
	}
	return result
}
