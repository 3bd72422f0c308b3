package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Queue     QueueConfig
	IndexSync IndexSyncConfig
	Telemetry TelemetryConfig
	Codes     CodeConfig
	RateLimit RateLimitConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	Migrate     bool
}

// RedisConfig holds Redis connection settings (search index and redis queue)
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	Backend    string // "memory" or "redis"
	DefaultTTL time.Duration
	KeyPrefix  string
}

// QueueConfig holds dispatch queue settings
type QueueConfig struct {
	Type       string // "memory" or "redis"
	BufferSize int
	ListPrefix string
}

// IndexSyncConfig controls the search index synchronizer
type IndexSyncConfig struct {
	Enabled        bool
	Workers        int
	DispatchBuffer int
	Backend        string // "redis" or "memory"
	KeyPrefix      string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// CodeConfig controls temp-absent code generation
type CodeConfig struct {
	Length      int
	MaxAttempts int
}

// RateLimitConfig limits mutating requests per caller. Requires Redis.
type RateLimitConfig struct {
	Enabled   bool
	Limit     int64
	Window    time.Duration
	KeyPrefix string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "qldp"),
			User:        getEnv("POSTGRES_USER", "qldp"),
			Password:    getEnv("POSTGRES_PASSWORD", "qldp"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
			Migrate:     getEnvBool("POSTGRES_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
			KeyPrefix:  getEnv("CACHE_KEY_PREFIX", "qldp:cache:"),
		},
		Queue: QueueConfig{
			Type:       getEnv("QUEUE_TYPE", "memory"),
			BufferSize: getEnvInt("QUEUE_BUFFER_SIZE", 1000),
			ListPrefix: getEnv("QUEUE_LIST_PREFIX", "qldp:queue:"),
		},
		IndexSync: IndexSyncConfig{
			Enabled:        getEnvBool("INDEX_SYNC_ENABLED", true),
			Workers:        getEnvInt("INDEX_SYNC_WORKERS", 4),
			DispatchBuffer: getEnvInt("INDEX_SYNC_DISPATCH_BUFFER", 1024),
			Backend:        getEnv("INDEX_BACKEND", "redis"),
			KeyPrefix:      getEnv("INDEX_KEY_PREFIX", "qldp:search:"),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
		Codes: CodeConfig{
			Length:      getEnvInt("TEMP_ABSENT_CODE_LENGTH", 8),
			MaxAttempts: getEnvInt("TEMP_ABSENT_MAX_ATTEMPTS", 3),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getEnvBool("RATE_LIMIT_ENABLED", false),
			Limit:     int64(getEnvInt("RATE_LIMIT_WRITES", 60)),
			Window:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix: getEnv("RATE_LIMIT_KEY_PREFIX", "qldp:rate_limit:"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	switch c.IndexSync.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown index backend: %s", c.IndexSync.Backend)
	}

	if c.Cache.Enabled && c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.IndexSync.Workers < 1 {
		return fmt.Errorf("index sync workers must be >= 1")
	}

	if c.IndexSync.DispatchBuffer < 1 {
		return fmt.Errorf("index sync dispatch buffer must be >= 1")
	}

	if c.Codes.Length < 4 {
		return fmt.Errorf("temp absent code length must be >= 4, got %d", c.Codes.Length)
	}

	if c.Codes.MaxAttempts < 1 {
		return fmt.Errorf("temp absent max attempts must be >= 1")
	}

	if c.RateLimit.Enabled && (c.RateLimit.Limit < 1 || c.RateLimit.Window < time.Second) {
		return fmt.Errorf("rate limit needs a positive limit and a window of at least 1s")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
