package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis (optional API response cache)
	Redis RedisConfig

	// Market data provider
	Finnhub FinnhubConfig

	// Pipeline tuning
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// FinnhubConfig holds market-data provider configuration
type FinnhubConfig struct {
	APIKey  string
	BaseURL string

	// ProviderLimit is the provider-wide hard ceiling in calls/min.
	// The two instance ceilings below must sum to strictly less.
	ProviderLimit int

	// Per-minute ceilings for the two gateway instances.
	InteractiveLimit int
	BatchLimit       int

	// Per-second smoothing below the per-minute window. 0 disables it.
	RequestsPerSec int

	CallTimeout time.Duration
}

// PipelineConfig holds daily-picks pipeline tuning
type PipelineConfig struct {
	Exchange      string   // symbol listing exchange, e.g. "US"
	MaxCandidates int      // survivors eligible for the sentiment phase
	NewsDays      int      // trailing news window for the batch run
	RetentionDays int      // persisted picks older than this are purged
	SeedSymbols   []string // quick-seed list used at startup
	Schedule      string   // cron expression for the daily run
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Finnhub: FinnhubConfig{
			APIKey:           getEnv("FINNHUB_API_KEY", ""),
			BaseURL:          getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			ProviderLimit:    getEnvAsInt("FINNHUB_PROVIDER_LIMIT", 60),
			InteractiveLimit: getEnvAsInt("FINNHUB_INTERACTIVE_LIMIT", 10),
			BatchLimit:       getEnvAsInt("FINNHUB_BATCH_LIMIT", 45),
			RequestsPerSec:   getEnvAsInt("FINNHUB_REQUESTS_PER_SEC", 10),
			CallTimeout:      getEnvAsDuration("FINNHUB_CALL_TIMEOUT", "30s"),
		},

		Pipeline: PipelineConfig{
			Exchange:      getEnv("PICKS_EXCHANGE", "US"),
			MaxCandidates: getEnvAsInt("PICKS_MAX_CANDIDATES", 200),
			NewsDays:      getEnvAsInt("PICKS_NEWS_DAYS", 3),
			RetentionDays: getEnvAsInt("PICKS_RETENTION_DAYS", 7),
			SeedSymbols:   getEnvAsSlice("PICKS_SEED_SYMBOLS", defaultSeedSymbols),
			// 21:30 UTC on weekdays, after the US close (with seconds field).
			Schedule: getEnv("PICKS_SCHEDULE", "0 30 21 * * 1-5"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// defaultSeedSymbols is the quick-seed universe used at startup so the
// API has picks available before the first full scan completes.
var defaultSeedSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AVGO",
	"AMD", "NFLX", "CRM", "ORCL", "ADBE", "INTC", "QCOM", "TXN",
	"JPM", "BAC", "GS", "V", "MA", "UNH", "JNJ", "ABBV",
	"LLY", "PFE", "MRK", "XOM", "CVX", "WMT", "COST", "HD",
	"PG", "KO", "PEP", "DIS", "NKE", "MCD", "CAT", "BA",
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("FINNHUB_API_KEY is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Finnhub.InteractiveLimit <= 0 || c.Finnhub.BatchLimit <= 0 {
		return fmt.Errorf("gateway rate ceilings must be positive")
	}

	if sum := c.Finnhub.InteractiveLimit + c.Finnhub.BatchLimit; sum >= c.Finnhub.ProviderLimit {
		return fmt.Errorf("gateway rate ceilings sum to %d/min, must stay below the provider limit of %d/min",
			sum, c.Finnhub.ProviderLimit)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
