// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath   string
	DatabaseDriver string // "sqlite" (modernc, pure Go) or "sqlite3" (mattn, cgo)
	LogLevel       string
	Port           int
	DevMode        bool
	CORSOrigins    []string

	AdminToken string
	UserTokens []string

	AlphaVantage AlphaVantageConfig
	NSE          NSEConfig
	Sync         SyncConfig
	Backup       *BackupConfig

	USDINRRate float64 // Static display conversion rate
	SeedFile   string
}

// AlphaVantageConfig configures the global quote provider
type AlphaVantageConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Overview   bool // Enrich quotes with OVERVIEW name/sector (costs one extra request)
	DailyLimit int  // Client-side requests per UTC day; 0 is unlimited
}

// NSEConfig configures the regional exchange provider
type NSEConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SyncConfig holds pacing and scheduling for batch refreshes
type SyncConfig struct {
	GlobalInterval    time.Duration
	RegionalInterval  time.Duration
	RefreshSchedule   string // cron expression with seconds field; empty disables
	RefreshTimeout    time.Duration
	SkipClosedMarkets bool
}

// BackupConfig holds Cloudflare R2 backup settings (nil fields mean disabled)
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Schedule        string
	RetentionDays   int
}

// Enabled reports whether all R2 credentials are present
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.AccountID != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.BucketName != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:   getEnv("DATABASE_PATH", "./data/stockwatch.db"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("PORT", 8080),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS"),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		UserTokens:     getEnvAsList("USER_TOKENS"),
		AlphaVantage: AlphaVantageConfig{
			APIKey:   getEnv("ALPHAVANTAGE_API_KEY", ""),
			BaseURL:  getEnv("ALPHAVANTAGE_BASE_URL", ""),
			Timeout:  getEnvAsDuration("ALPHAVANTAGE_TIMEOUT", 15*time.Second),
			Overview: getEnvAsBool("ALPHAVANTAGE_OVERVIEW", false),
			// Free keys allow 25 requests per day; paid keys have no daily cap
			DailyLimit: getEnvAsInt("ALPHAVANTAGE_DAILY_LIMIT", 0),
		},
		NSE: NSEConfig{
			BaseURL: getEnv("NSE_BASE_URL", ""),
			Timeout: getEnvAsDuration("NSE_TIMEOUT", 10*time.Second),
		},
		Sync: SyncConfig{
			GlobalInterval:    getEnvAsDuration("GLOBAL_PACING_INTERVAL", 12*time.Second), // 5 req/min free tier
			RegionalInterval:  getEnvAsDuration("REGIONAL_PACING_INTERVAL", time.Second),
			RefreshSchedule:   getEnv("REFRESH_SCHEDULE", "0 0 */4 * * *"),
			RefreshTimeout:    getEnvAsDuration("REFRESH_TIMEOUT", 30*time.Minute),
			SkipClosedMarkets: getEnvAsBool("SKIP_CLOSED_MARKETS", true),
		},
		Backup: &BackupConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		USDINRRate: getEnvAsFloat("USD_INR_RATE", 83.5),
		SeedFile:   getEnv("SEED_FILE", ""),
	}

	// Validate required fields
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

	switch c.DatabaseDriver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or sqlite3, got %q", c.DatabaseDriver)
	}

	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}

	if c.Sync.GlobalInterval <= 0 || c.Sync.RegionalInterval <= 0 {
		return fmt.Errorf("pacing intervals must be positive")
	}

	if c.AlphaVantage.DailyLimit < 0 {
		return fmt.Errorf("ALPHAVANTAGE_DAILY_LIMIT must be >= 0")
	}

	if c.USDINRRate <= 0 {
		return fmt.Errorf("USD_INR_RATE must be positive")
	}

	// Note: ALPHAVANTAGE_API_KEY is optional; without it global symbols fail at fetch time
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
