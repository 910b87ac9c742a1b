// Package token mints and parses the HS256 access tokens handed out at login.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/statement/internal/auth/domain"
	"github.com/smallbiznis/statement/internal/config"
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the typed JWT issued to clients.
type Claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// New builds an Issuer from auth configuration. A blank secret is only
// accepted outside production, where a random one is generated per process.
func New(cfg config.Config) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_JWT_SECRET is required in production")
		}
		secret = uuid.NewString()
	}
	issuer := strings.TrimSpace(cfg.Auth.JWTIssuer)
	if issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	ttl := time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Mint signs a token for user valid from now for the configured TTL.
func (i *Issuer) Mint(user *domain.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates signature, issuer and expiry of raw.
func (i *Issuer) Parse(raw string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
