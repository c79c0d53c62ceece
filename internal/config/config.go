// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for application data (always absolute)
	CacheDir       string // Directory for the cache database (defaults to DataDir/cache)
	CacheSizeBytes int64  // LRU eviction threshold for the cache store
	Port           int
	LogLevel       string
	DevMode        bool

	// Compliance provider selection: "zoya" or "static"
	ComplianceProvider   string
	ZoyaAPIKey           string
	ZoyaAPIURL           string // optional endpoint override
	StaticCompliancePath string // CSV path for the static provider

	// Rate limit budgets (requests per hour)
	ZoyaRequestsPerHour  int
	YahooRequestsPerHour int

	// Cache lifetimes
	QuoteTTL      time.Duration
	DailyBarsTTL  time.Duration
	ComplianceTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HALAL_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cacheDir := getEnv("HALAL_CACHE_DIR", "")
	if cacheDir == "" {
		cacheDir = filepath.Join(absDataDir, "cache")
	}

	cfg := &Config{
		DataDir:        absDataDir,
		CacheDir:       cacheDir,
		CacheSizeBytes: getEnvAsInt64("CACHE_SIZE_BYTES", 500*1024*1024), // 500MB
		Port:           getEnvAsInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),

		ComplianceProvider:   getEnv("COMPLIANCE_PROVIDER", "static"),
		ZoyaAPIKey:           getEnv("ZOYA_API_KEY", ""),
		ZoyaAPIURL:           getEnv("ZOYA_API_URL", ""),
		StaticCompliancePath: getEnv("STATIC_COMPLIANCE_PATH", filepath.Join(absDataDir, "compliance", "halal_compliant_stocks.csv")),

		ZoyaRequestsPerHour:  getEnvAsInt("ZOYA_REQUESTS_PER_HOUR", 36000),
		YahooRequestsPerHour: getEnvAsInt("YAHOO_REQUESTS_PER_HOUR", 2000),

		QuoteTTL:      getEnvAsDuration("QUOTE_TTL", 15*time.Minute),
		DailyBarsTTL:  getEnvAsDuration("DAILY_BARS_TTL", 24*time.Hour),
		ComplianceTTL: getEnvAsDuration("COMPLIANCE_TTL", 30*24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.ComplianceProvider {
	case "zoya":
		if c.ZoyaAPIKey == "" {
			return fmt.Errorf("ZOYA_API_KEY is required when COMPLIANCE_PROVIDER=zoya")
		}
	case "static":
	default:
		return fmt.Errorf("unknown COMPLIANCE_PROVIDER %q (expected \"zoya\" or \"static\")", c.ComplianceProvider)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	return nil
}

// Helper functions
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
