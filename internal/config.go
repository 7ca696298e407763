package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	LogLevel       string
	Port           uint16
	PageSize       int
	CurrencyPrefix string
	API            APIConfig
	Cashier        CashierConfig
	Sentry         SentryConfig
}

// SentryConfig enables optional error tracking.
type SentryConfig struct {
	DSN     string
	Enabled bool
}

// APIConfig holds connection settings for the remote Deliver Point backend.
type APIConfig struct {
	BaseURL string
	Token   string
	// Timeout covers the whole request including cold starts on the
	// hosted backend, hence the generous default.
	Timeout time.Duration
}

// CashierConfig is the authenticated operator identity. The till does not
// manage credentials; identity is provisioned alongside the API token.
type CashierConfig struct {
	ID   string
	Name string
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvInt("PORT", 4000),
		PageSize:       int(getEnvInt("PAGE_SIZE", 6)),
		CurrencyPrefix: getEnv("CURRENCY_PREFIX", "R"),
		API: APIConfig{
			BaseURL: getEnv("POS_API_URL", "https://deliver-point-pos-backend.onrender.com/api"),
			Token:   getEnv("POS_API_TOKEN", ""),
			Timeout: getEnvDuration("POS_API_TIMEOUT", 60*time.Second),
		},
		Cashier: CashierConfig{
			ID:   getEnv("CASHIER_ID", ""),
			Name: getEnv("CASHIER_NAME", ""),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Enabled: getEnv("SENTRY_ENABLED", "false") == "true",
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.PageSize < 1 {
		slog.Default().Warn("Invalid page size. Using default: 6", slog.Int("value", cfg.PageSize))
		cfg.PageSize = 6
	}

	// The backend rejects unauthenticated calls in production
	if cfg.Env == "prod" && cfg.API.Token == "" {
		return nil, fmt.Errorf("POS_API_TOKEN must be set in production environment")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
