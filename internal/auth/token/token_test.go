package token

import (
	"testing"
	"time"

	"github.com/smallbiznis/statement/internal/auth/domain"
	"github.com/smallbiznis/statement/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(secret, issuer string) config.Config {
	return config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			JWTSecret:       secret,
			JWTIssuer:       issuer,
			TokenTTLMinutes: 60,
		},
	}
}

func TestMintAndParse(t *testing.T) {
	issuer, err := New(testConfig("secret", "statement"))
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	raw, expiresAt, err := issuer.Mint(&domain.User{ID: "42", Username: "lin", Role: domain.RoleStaff}, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := issuer.Parse(raw, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "lin", claims.Username)
	assert.Equal(t, domain.RoleStaff, claims.Role)
}

func TestParseRejectsExpiredForeignAndTampered(t *testing.T) {
	issuer, err := New(testConfig("secret", "statement"))
	require.NoError(t, err)
	other, err := New(testConfig("secret", "someone-else"))
	require.NoError(t, err)
	wrongKey, err := New(testConfig("another-secret", "statement"))
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	user := &domain.User{ID: "42", Username: "lin", Role: domain.RoleAdmin}
	raw, _, err := issuer.Mint(user, now)
	require.NoError(t, err)

	_, err = issuer.Parse(raw, now.Add(2*time.Hour))
	assert.Error(t, err)

	_, err = other.Parse(raw, now)
	assert.Error(t, err)

	_, err = wrongKey.Parse(raw, now)
	assert.Error(t, err)

	_, err = issuer.Parse(raw+"x", now)
	assert.Error(t, err)
}

func TestNewRequiresSecretInProduction(t *testing.T) {
	cfg := testConfig("", "statement")
	cfg.Environment = "production"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg.Environment = "development"
	_, err = New(cfg)
	assert.NoError(t, err)
}
