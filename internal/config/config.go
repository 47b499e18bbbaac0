package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port                 int
	DatabasePath         string
	PricesCSVSource      string
	PriceRefreshSchedule string
	DefaultAssetType     string
	LogLevel             string
	DevMode              bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8000),
		DatabasePath:         getEnv("DATABASE_PATH", "./data/portfolio.db"),
		PricesCSVSource:      getEnv("PRICES_CSV_URL", ""),
		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "@every 15m"),
		DefaultAssetType:     getEnv("DEFAULT_ASSET_TYPE", "STOCK"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	// PRICES_CSV_URL is optional: without it rebalance requests must carry
	// their own prices.
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
