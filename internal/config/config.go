package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Firestore FirestoreConfig
}

type AuthConfig struct {
	JWTSecret         string
	JWTIssuer         string
	TokenTTLMinutes   int
	AdminUsername     string
	AdminPassword     string
	AdminDisplayName  string
	EnsureAdminOnBoot bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	Enabled    bool
	LoginRate  float64
	LoginBurst int
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "statement"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "statement"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Auth: AuthConfig{
			JWTSecret:         strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
			JWTIssuer:         getenv("AUTH_JWT_ISSUER", "statement"),
			TokenTTLMinutes:   getenvInt("AUTH_TOKEN_TTL_MINUTES", 720),
			AdminUsername:     strings.TrimSpace(getenv("ADMIN_USERNAME", "admin")),
			AdminPassword:     getenv("ADMIN_PASSWORD", ""),
			AdminDisplayName:  getenv("ADMIN_DISPLAY_NAME", "Administrator"),
			EnsureAdminOnBoot: getenvBool("ENSURE_ADMIN_ON_BOOT", true),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getenvBool("RATE_LIMIT_ENABLED", true),
			LoginRate:  getenvFloat("RATE_LIMIT_LOGIN_RATE", 0.2),
			LoginBurst: getenvInt("RATE_LIMIT_LOGIN_BURST", 5),
		},
		Firestore: FirestoreConfig{
			ProjectID:       strings.TrimSpace(getenv("FIRESTORE_PROJECT_ID", "")),
			CredentialsFile: strings.TrimSpace(getenv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
