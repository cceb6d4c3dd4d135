package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is not set")

// LoadENV loads variables from .env unless GO_ENV points at a deployed environment.
// A missing .env file is fine in development; the process environment is used as is.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV string
	PORT   int

	// Database
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string

	// Session tokens
	JWT_SECRET string
	JWT_ISSUER string
	JWT_EXPIRY time.Duration

	// One-time passwords
	OTP_TTL          time.Duration
	OTP_MAX_ATTEMPTS int

	// Google sign-in
	GOOGLE_CLIENT_ID string

	// Redis (login brute force protection)
	REDIS_URL string

	// HTTP hardening
	ALLOWED_ORIGINS     string
	RATE_LIMIT_REQUESTS int

	CRON_ENABLED bool

	// SMTP (OTP delivery)
	SMTP_HOST     string
	SMTP_PORT     int
	SMTP_USERNAME string
	SMTP_PASSWORD string
	SMTP_FROM     string

	// S3 compatible storage for KPI submission files
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string

	// Seeded QAC account
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
}

// IsProduction reports whether the service runs with production defaults.
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// StorageConfigured reports whether uploads can be stored.
func (e *EnvironmentVariable) StorageConfigured() bool {
	return e.SPACES_ACCESS_KEY != "" && e.SPACES_SECRET_KEY != "" && e.SPACES_BUCKET != "" && e.SPACES_ENDPOINT != ""
}

func Get() (*EnvironmentVariable, error) {
	envVariables := &EnvironmentVariable{
		GO_ENV: os.Getenv("GO_ENV"),
		PORT:   getInt("PORT", 8080),

		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getOrDefault("DB_SSL_MODE", "disable"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getOrDefault("JWT_ISSUER", "kpi-tracker-api"),
		JWT_EXPIRY: getDuration("JWT_EXPIRY", 24*time.Hour),

		OTP_TTL:          getDuration("OTP_TTL", 10*time.Minute),
		OTP_MAX_ATTEMPTS: getInt("OTP_MAX_ATTEMPTS", 5),

		GOOGLE_CLIENT_ID: os.Getenv("GOOGLE_CLIENT_ID"),

		REDIS_URL: getOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		ALLOWED_ORIGINS:     getOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		RATE_LIMIT_REQUESTS: getInt("RATE_LIMIT_REQUESTS", 100),

		CRON_ENABLED: os.Getenv("CRON_ENABLED") != "false",

		SMTP_HOST:     getOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:     getInt("SMTP_PORT", 587),
		SMTP_USERNAME: os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     getOrDefault("SMTP_FROM", "noreply@kpi-tracker.local"),

		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     getOrDefault("SPACES_REGION", "us-east-1"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),

		ADMIN_EMAIL:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
	}

	if envVariables.JWT_SECRET == "" {
		return nil, ErrMissingJWTSecret
	}

	return envVariables, nil
}

func getOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}
