package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	Secret        string
	DatabaseDSN   string
	HTTPPort      string
	LogLevel      string
	Environment   string
	AdminEmail    string
	AdminPassword string
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	port := getenv("HTTP_PORT", "8080")

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Secret:        getenv("SECRET", "dev_secret"),
		DatabaseDSN:   getenv("DATABASE_DSN", "file:optimaster.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"),
		HTTPPort:      port,
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Environment:   getenv("ENVIRONMENT", "development"),
		AdminEmail:    getenv("ADMIN_EMAIL", "admin@optimaster.local"),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),
	}
}
