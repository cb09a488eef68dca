package config

import (
	"os"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string // empty runs the server on the in-memory store
	RedisURL    string // empty disables cross-instance change broadcast
	JWKSURL     string
	CORSOrigins string
	TablePrefix string
	LogDir      string // empty logs to stdout only
	IdleTimeout time.Duration
	// Drafting assistant
	AnthropicAPIKey string
	DraftProvider   string
	DraftModel      string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		LogDir:      getEnv("LOG_DIR", ""),
		IdleTimeout: getDuration("IDLE_TIMEOUT", 15*time.Minute),
		// Drafting assistant
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DraftProvider:   getEnv("DRAFT_PROVIDER", "anthropic"),
		DraftModel:      getEnv("DRAFT_MODEL", ""),
		// Debug defaults to true outside prod
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix for the environment, overridable
// via TABLE_PREFIX.
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
