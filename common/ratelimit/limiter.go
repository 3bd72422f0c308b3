package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/redis"
	goredis "github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// Limiter is a fixed window rate limiter backed by Redis and a Lua script
type Limiter struct {
	redis  *goredis.Client
	script *goredis.Script
	prefix string
	log    *logger.Logger
}

// NewLimiter creates a limiter storing its counters under prefix
func NewLimiter(client *redis.Client, prefix string, log *logger.Logger) *Limiter {
	return &Limiter{
		redis:  client.GetUnderlying(),
		script: goredis.NewScript(rateLimitScript),
		prefix: prefix,
		log:    log,
	}
}

func (l *Limiter) key(subject string) string {
	return l.prefix + subject
}

// Allow counts one request by subject against limit per window
func (l *Limiter) Allow(ctx context.Context, subject string, limit int64, window time.Duration) (*Result, error) {
	key := l.key(subject)
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	raw, err := l.script.Run(ctx, l.redis, []string{key}, limit, seconds).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(raw) != 4 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	result := &Result{
		Allowed:           raw[0] == 1,
		CurrentCount:      raw[1],
		Limit:             raw[2],
		RetryAfterSeconds: raw[3],
	}

	if !result.Allowed {
		l.log.Warn("rate limit exceeded",
			"key", key,
			"current", result.CurrentCount,
			"limit", limit,
			"retry_after", result.RetryAfterSeconds)
	}

	return result, nil
}
