// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// FundsDBPath points at the database owned by the ingestion collaborator
	// (fund registry + NAV observations). Opened read-only.
	FundsDBPath string
	// ScoresDBPath is the engine-owned database (scores, rankings, validation).
	ScoresDBPath string
	DataDir      string
	LogLevel     string
	Port         int
	DevMode      bool

	// Scoring cycle tuning
	ScoringConcurrency int // parallel fund computations per cycle
	ScoringChunkSize   int // funds per chunk

	// Cron schedules
	ScoringSchedule  string
	BacktestSchedule string
	BackupSchedule   string

	// R2 backup (optional; backups disabled when unset)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	BackupRetention   int // remote backup retention in days
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8004),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DataDir:      getEnv("DATA_DIR", "./data"),
		FundsDBPath:  getEnv("FUNDS_DB_PATH", "./data/funds.db"),
		ScoresDBPath: getEnv("SCORES_DB_PATH", "./data/scores.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		ScoringConcurrency: getEnvAsInt("SCORING_CONCURRENCY", 8),
		ScoringChunkSize:   getEnvAsInt("SCORING_CHUNK_SIZE", 100),

		ScoringSchedule:  getEnv("SCORING_SCHEDULE", "0 0 2 * * *"),  // 02:00 nightly
		BacktestSchedule: getEnv("BACKTEST_SCHEDULE", "0 0 4 * * 0"), // 04:00 Sundays
		BackupSchedule:   getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),  // 03:30 nightly

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:          getEnv("R2_BUCKET", ""),
		BackupRetention:   getEnvAsInt("BACKUP_RETENTION", 14),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.FundsDBPath == "" {
		return fmt.Errorf("FUNDS_DB_PATH is required")
	}
	if c.ScoresDBPath == "" {
		return fmt.Errorf("SCORES_DB_PATH is required")
	}
	if c.ScoringConcurrency < 1 {
		return fmt.Errorf("SCORING_CONCURRENCY must be at least 1")
	}
	if c.ScoringChunkSize < 1 {
		return fmt.Errorf("SCORING_CHUNK_SIZE must be at least 1")
	}
	return nil
}

// BackupsEnabled reports whether R2 backup credentials are fully configured.
func (c *Config) BackupsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2Bucket != ""
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
