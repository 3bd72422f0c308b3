package bootstrap

import (
	"context"
	"fmt"

	"github.com/qldp/registry/common/cache"
	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/db"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/queue"
	"github.com/qldp/registry/common/redis"
	"github.com/qldp/registry/common/search"
	"github.com/qldp/registry/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		if cfg.Database.Migrate {
			if err := components.DB.Migrate(ctx); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
	}

	// 4. Connect to redis when any component is backed by it
	if needsRedis(cfg, options) {
		components.Redis, err = redis.Dial(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Initialize queue (if not skipped)
	if !options.skipQueue {
		components.Logger.Info("initializing queue",
			"type", cfg.Queue.Type,
		)

		switch cfg.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(cfg.Queue.BufferSize, components.Logger)
		case "redis":
			components.Queue = queue.NewRedisQueue(components.Redis, cfg.Queue.ListPrefix, components.Logger)
		default:
			components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", cfg.Queue.Type)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 6. Initialize cache (if not skipped)
	if !options.skipCache && cfg.Cache.Enabled {
		components.Logger.Info("initializing cache",
			"backend", cfg.Cache.Backend,
			"ttl", cfg.Cache.DefaultTTL,
		)

		if cfg.Cache.Backend == "redis" {
			components.Cache = cache.NewRedisCache(components.Redis, cfg.Cache.KeyPrefix)
		} else {
			components.Cache = cache.NewMemoryCache(components.Logger)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 7. Initialize search index
	if !options.skipIndex && cfg.IndexSync.Enabled {
		if cfg.IndexSync.Backend == "redis" {
			components.Index = search.NewRedisIndex(components.Redis, cfg.IndexSync.KeyPrefix)
		} else {
			components.Index = search.NewMemoryIndex()
		}
	}

	// 8. Initialize telemetry (if not skipped)
	if !options.skipTelemetry {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(cfg.Telemetry, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}

		components.addCleanup(func() error {
			return components.Telemetry.Shutdown(context.Background())
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"index", components.Index != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

func needsRedis(cfg *config.Config, o *options) bool {
	if !o.skipQueue && cfg.Queue.Type == "redis" {
		return true
	}
	if !o.skipCache && cfg.Cache.Enabled && cfg.Cache.Backend == "redis" {
		return true
	}
	if !o.skipIndex && cfg.IndexSync.Enabled && cfg.IndexSync.Backend == "redis" {
		return true
	}
	return cfg.RateLimit.Enabled
}
