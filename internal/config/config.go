package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Policy   PolicyConfig
	Job      JobConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

// PolicyConfig backs the policy provider. Values here are the source of
// truth the cached provider reads through to; per-class overrides come from
// LOAN_POLICY_<CLASS>_* variables.
type PolicyConfig struct {
	DefaultMaxBorrowLimit    int
	DefaultBorrowDuration    int // days
	DefaultMaxRenewals       int
	DefaultReservationExpiry int // days until a pending reservation expires
	CacheTTLMinutes          int
}

type JobConfig struct {
	SweepBatchLimit    int // records classified per sweeper run
	ReminderWindowDays int // "due soon" notification window
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Circulation API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "circulation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Policy: PolicyConfig{
			DefaultMaxBorrowLimit:    getEnvInt("POLICY_MAX_BORROW_LIMIT", 5),
			DefaultBorrowDuration:    getEnvInt("POLICY_BORROW_DURATION_DAYS", 14),
			DefaultMaxRenewals:       getEnvInt("POLICY_MAX_RENEWALS", 2),
			DefaultReservationExpiry: getEnvInt("POLICY_RESERVATION_EXPIRY_DAYS", 7),
			CacheTTLMinutes:          getEnvInt("POLICY_CACHE_TTL_MINUTES", 10),
		},
		Job: JobConfig{
			SweepBatchLimit:    getEnvInt("JOB_SWEEP_BATCH_LIMIT", 500),
			ReminderWindowDays: getEnvInt("JOB_REMINDER_WINDOW_DAYS", 2),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the parts of the config that must hold before startup.
func (c *Config) Validate() error {
	if c.App.Environment == "production" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD must be set in production")
	}

	if c.Policy.DefaultBorrowDuration <= 0 {
		return fmt.Errorf("POLICY_BORROW_DURATION_DAYS must be positive")
	}
	if c.Policy.DefaultReservationExpiry <= 0 {
		return fmt.Errorf("POLICY_RESERVATION_EXPIRY_DAYS must be positive")
	}
	if c.Policy.DefaultMaxBorrowLimit <= 0 {
		return fmt.Errorf("POLICY_MAX_BORROW_LIMIT must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
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
