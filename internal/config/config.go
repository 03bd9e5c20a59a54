// Package config loads application configuration from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
)

// GeneratorConfig configures the content-generation providers. The
// primary provider is tried first; the fallback (when configured) is
// tried when the primary errors out.
type GeneratorConfig struct {
	// APIKey authenticates against the primary provider
	APIKey string
	// BaseURL overrides the primary provider endpoint (empty = OpenAI)
	BaseURL string
	// Model is the primary chat model
	Model string
	// FallbackAPIKey, FallbackBaseURL and FallbackModel configure the
	// secondary provider; fallback is disabled when the key is empty
	FallbackAPIKey  string
	FallbackBaseURL string
	FallbackModel   string
	// Timeout bounds a single generation call
	Timeout time.Duration
}

// Config holds all configuration for the auto-post service
type Config struct {
	// RedisURL is the connection URL for the delay queue and scan lock
	RedisURL string
	// DatabasePath is the SQLite database file
	DatabasePath string

	// MaxPostsPerPeriod is the monthly publish quota per schedule
	MaxPostsPerPeriod int

	// ScanSpec is the cron expression for the slow scan tick
	ScanSpec string
	// DrainSpec is the cron expression for the fast drain tick
	DrainSpec string

	// QueueSpacing is the execution offset between consecutive on-time
	// schedules enqueued in one scan, throttling generation bursts
	QueueSpacing time.Duration
	// DrainBatchSize caps how many entries one drain cycle claims
	DrainBatchSize int
	// OverdueBuffer is how late a schedule may run before it is treated
	// as overdue and processed immediately
	OverdueBuffer time.Duration
	// StaleCutoff is how far beyond now a sub-daily schedule's next run
	// may sit before the scanner repairs it
	StaleCutoff time.Duration

	Generator GeneratorConfig

	Logging *logger.Config
}

// Load reads configuration from environment variables, applying
// defaults and validating required fields.
func Load() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabasePath:      getEnv("DATABASE_PATH", "autopost.db"),
		MaxPostsPerPeriod: getEnvAsInt("MAX_POSTS_PER_MONTH", 20),
		ScanSpec:          getEnv("SCAN_CRON", "0 * * * *"),
		DrainSpec:         getEnv("DRAIN_CRON", "* * * * *"),
		QueueSpacing:      getEnvAsDuration("QUEUE_SPACING", 12*time.Minute),
		DrainBatchSize:    getEnvAsInt("DRAIN_BATCH_SIZE", 5),
		OverdueBuffer:     getEnvAsDuration("OVERDUE_BUFFER", 5*time.Minute),
		StaleCutoff:       getEnvAsDuration("STALE_CUTOFF", 6*time.Hour),
		Generator: GeneratorConfig{
			APIKey:          getEnv("AUTOPOST_API_KEY", ""),
			BaseURL:         getEnv("AUTOPOST_BASE_URL", ""),
			Model:           getEnv("AUTOPOST_MODEL", "gpt-4o-mini"),
			FallbackAPIKey:  getEnv("AUTOPOST_FALLBACK_API_KEY", ""),
			FallbackBaseURL: getEnv("AUTOPOST_FALLBACK_BASE_URL", ""),
			FallbackModel:   getEnv("AUTOPOST_FALLBACK_MODEL", ""),
			Timeout:         getEnvAsDuration("AUTOPOST_TIMEOUT", 2*time.Minute),
		},
		Logging: loadLoggingConfig(),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL cannot be empty")
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("DATABASE_PATH cannot be empty")
	}
	if cfg.MaxPostsPerPeriod < 1 {
		return nil, fmt.Errorf("MAX_POSTS_PER_MONTH must be at least 1")
	}
	if cfg.DrainBatchSize < 1 {
		return nil, fmt.Errorf("DRAIN_BATCH_SIZE must be at least 1")
	}
	if cfg.QueueSpacing < 0 {
		return nil, fmt.Errorf("QUEUE_SPACING cannot be negative")
	}
	if cfg.Generator.APIKey == "" {
		return nil, fmt.Errorf("AUTOPOST_API_KEY cannot be empty")
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	return cfg, nil
}

func loadLoggingConfig() *logger.Config {
	cfg := logger.DefaultConfig()

	if level := getEnv("LOG_LEVEL", ""); level != "" {
		cfg.Level = logger.ParseLevel(level)
	}
	cfg.Console.Color = getEnvAsBool("LOG_COLOR", true)

	cfg.File.Enabled = getEnvAsBool("LOG_FILE_ENABLED", false)
	cfg.File.Path = getEnv("LOG_FILE_PATH", cfg.File.Path)
	cfg.File.MaxSizeMB = getEnvAsInt("LOG_FILE_MAX_SIZE_MB", cfg.File.MaxSizeMB)
	cfg.File.MaxBackups = getEnvAsInt("LOG_FILE_MAX_BACKUPS", cfg.File.MaxBackups)
	cfg.File.MaxAgeDays = getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", cfg.File.MaxAgeDays)
	cfg.File.Compress = getEnvAsBool("LOG_FILE_COMPRESS", cfg.File.Compress)

	return cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or
// returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration or
// returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or
// returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
