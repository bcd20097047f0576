package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Dataset
	Dataset DatasetConfig

	// Cache
	Cache CacheConfig

	// Redis
	Redis RedisConfig

	// Database
	Database DatabaseConfig

	// News
	News NewsConfig

	// Services
	API       APIConfig
	WSGateway WSGatewayConfig
	Refresher RefresherConfig
}

// DatasetConfig holds the locations of the published price and commodity tables
type DatasetConfig struct {
	PricesURL    string
	MetaURL      string
	PricesPath   string
	MetaPath     string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
}

// CacheConfig selects the snapshot cache backend
type CacheConfig struct {
	Backend string // "memory" or "redis"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewsConfig holds RSS news collector configuration
type NewsConfig struct {
	Feeds         []string
	PerStockLimit int
	CacheTTL      time.Duration
	RateLimitRPS  int
	FetchTimeout  time.Duration
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port            int
	HealthCheckPort int
	JWTSecret       string
	JWTExpiry       time.Duration
	RateLimitRPS    int
}

// WSGatewayConfig holds WebSocket gateway configuration
type WSGatewayConfig struct {
	Port            int
	HealthCheckPort int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxConnections  int
	JWTSecret       string
	RefreshChannel  string
}

// RefresherConfig holds refresh scheduler configuration
type RefresherConfig struct {
	HealthCheckPort int
	Schedule        string
	Channel         string
	RunOnStart      bool
	// Database write configuration
	DBWriteBatchSize int
	DBWriteInterval  time.Duration
	DBWriteQueueSize int
	DBMaxRetries     int
	DBRetryDelay     time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory or parent directories
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Dataset: DatasetConfig{
			PricesURL:    getEnv("DATA_CSV_URL", ""),
			MetaURL:      getEnv("COMMO_LIST_CSV_URL", ""),
			PricesPath:   getEnv("DATASET_LOCAL_PRICES_PATH", "data/Data.csv"),
			MetaPath:     getEnv("DATASET_LOCAL_META_PATH", "data/Commo_list.csv"),
			FetchTimeout: getEnvAsDuration("DATASET_FETCH_TIMEOUT", 30*time.Second),
			CacheTTL:     getEnvAsDuration("DATASET_CACHE_TTL", 1*time.Hour),
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "memory"), // "memory" or "redis"
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("STORAGE_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "commodity_dashboard"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		News: NewsConfig{
			Feeds:         getEnvAsStringSlice("NEWS_FEEDS", []string{}),
			PerStockLimit: getEnvAsInt("NEWS_PER_STOCK_LIMIT", 3),
			CacheTTL:      getEnvAsDuration("NEWS_CACHE_TTL", 30*time.Minute),
			RateLimitRPS:  getEnvAsInt("NEWS_RATE_LIMIT_RPS", 2),
			FetchTimeout:  getEnvAsDuration("NEWS_FETCH_TIMEOUT", 15*time.Second),
		},
		API: APIConfig{
			Port:            getEnvAsInt("API_PORT", 8090),
			HealthCheckPort: getEnvAsInt("API_HEALTH_PORT", 8091),
			JWTSecret:       getEnv("API_JWT_SECRET", ""),
			JWTExpiry:       getEnvAsDuration("API_JWT_EXPIRY", 24*time.Hour),
			RateLimitRPS:    getEnvAsInt("API_RATE_LIMIT_RPS", 100),
		},
		WSGateway: WSGatewayConfig{
			Port:            getEnvAsInt("WS_GATEWAY_PORT", 8088),
			HealthCheckPort: getEnvAsInt("WS_GATEWAY_HEALTH_PORT", 8089),
			ReadTimeout:     getEnvAsDuration("WS_GATEWAY_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    getEnvAsDuration("WS_GATEWAY_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:    getEnvAsDuration("WS_GATEWAY_PING_INTERVAL", 30*time.Second),
			MaxConnections:  getEnvAsInt("WS_GATEWAY_MAX_CONNECTIONS", 1000),
			JWTSecret:       getEnv("WS_GATEWAY_JWT_SECRET", ""),
			RefreshChannel:  getEnv("WS_GATEWAY_REFRESH_CHANNEL", "dashboard.refresh"),
		},
		Refresher: RefresherConfig{
			HealthCheckPort: getEnvAsInt("REFRESHER_HEALTH_PORT", 8085),
			Schedule:        getEnv("REFRESH_SCHEDULE", "0 * * * *"),
			Channel:         getEnv("REFRESH_CHANNEL", "dashboard.refresh"),
			RunOnStart:      getEnvAsBool("REFRESH_ON_START", true),
			// Database write configuration
			DBWriteBatchSize: getEnvAsInt("REFRESHER_DB_WRITE_BATCH_SIZE", 500),
			DBWriteInterval:  getEnvAsDuration("REFRESHER_DB_WRITE_INTERVAL", 2*time.Second),
			DBWriteQueueSize: getEnvAsInt("REFRESHER_DB_WRITE_QUEUE_SIZE", 5000),
			DBMaxRetries:     getEnvAsInt("REFRESHER_DB_MAX_RETRIES", 3),
			DBRetryDelay:     getEnvAsDuration("REFRESHER_DB_RETRY_DELAY", 500*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Dataset.PricesURL == "" && c.Dataset.PricesPath == "" {
		return fmt.Errorf("DATA_CSV_URL or DATASET_LOCAL_PRICES_PATH is required")
	}
	if c.Dataset.MetaURL == "" && c.Dataset.MetaPath == "" {
		return fmt.Errorf("COMMO_LIST_CSV_URL or DATASET_LOCAL_META_PATH is required")
	}
	if c.Dataset.CacheTTL <= 0 {
		return fmt.Errorf("DATASET_CACHE_TTL must be positive")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be \"memory\" or \"redis\"")
	}
	if c.Cache.Backend == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when CACHE_BACKEND is redis")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required when STORAGE_ENABLED is true")
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
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
