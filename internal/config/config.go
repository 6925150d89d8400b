package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Achievements AchievementConfig
	Logging      LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	EnableQueryLogging  bool
	MigrationsPath      string
	HealthCheckInterval time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Provider      string // "memory", "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	CatalogTTL    time.Duration
}

// AchievementConfig holds tuning for the achievement engine
type AchievementConfig struct {
	// RarityInterval is how often the rarity job recomputes unlock percentages.
	RarityInterval time.Duration
	// RetroBatchSize is the user-ID window size for retroactive sync runs.
	RetroBatchSize int
	// EvaluateMaxRetries bounds retries of the unlock transition on transient
	// store errors during live evaluation.
	EvaluateMaxRetries uint64
	// EvaluateRetryInterval is the initial backoff between those retries.
	EvaluateRetryInterval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json", "console"
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	// Missing .env is fine; production injects real env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "9000"),
			Environment:     getEnv("GO_ENV", "development"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			GracefulTimeout: getDurationEnv("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:                 getEnv("DATABASE_URL", ""),
			MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
			SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			EnableQueryLogging:  getBoolEnv("DB_ENABLE_QUERY_LOGGING", true),
			MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", "migrations"),
			HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Cache: CacheConfig{
			Provider:      getEnv("CACHE_PROVIDER", "memory"),
			RedisURL:      getEnv("REDIS_URL", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
			CatalogTTL:    getDurationEnv("CACHE_CATALOG_TTL", 10*time.Minute),
		},
		Achievements: AchievementConfig{
			RarityInterval:        getDurationEnv("ACHIEVEMENT_RARITY_INTERVAL", 24*time.Hour),
			RetroBatchSize:        getIntEnv("ACHIEVEMENT_RETRO_BATCH_SIZE", 500),
			EvaluateMaxRetries:    uint64(getIntEnv("ACHIEVEMENT_EVALUATE_MAX_RETRIES", 3)),
			EvaluateRetryInterval: getDurationEnv("ACHIEVEMENT_EVALUATE_RETRY_INTERVAL", 100*time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Cache.Provider == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_PROVIDER=redis")
	}
	if c.Achievements.RetroBatchSize <= 0 {
		return fmt.Errorf("ACHIEVEMENT_RETRO_BATCH_SIZE must be positive")
	}
	if c.Achievements.RarityInterval < time.Minute {
		return fmt.Errorf("ACHIEVEMENT_RARITY_INTERVAL must be at least 1m")
	}
	return nil
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
