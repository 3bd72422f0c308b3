package bootstrap

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/qldp/registry/common/cache"
	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/queue"
	"github.com/qldp/registry/common/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("registry-test")
	require.NoError(t, err)
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnablePprof = false
	cfg.IndexSync.Backend = "memory"
	return cfg
}

func TestSetup_InMemory(t *testing.T) {
	ctx := context.Background()
	c, err := Setup(ctx, "registry-test",
		WithCustomConfig(testConfig(t)),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
	)
	require.NoError(t, err)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	assert.IsType(t, &queue.MemoryQueue{}, c.Queue)
	assert.IsType(t, &cache.MemoryCache{}, c.Cache)
	assert.IsType(t, &search.MemoryIndex{}, c.Index)
	require.NotNil(t, c.Telemetry)
	assert.NotNil(t, c.Telemetry.Metrics)

	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}

func TestSetup_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port
	cfg.Queue.Type = "redis"
	cfg.Cache.Backend = "redis"
	cfg.IndexSync.Backend = "redis"

	ctx := context.Background()
	c, err := Setup(ctx, "registry-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	require.NotNil(t, c.Redis)
	assert.IsType(t, &queue.RedisQueue{}, c.Queue)
	assert.IsType(t, &cache.RedisCache{}, c.Cache)
	assert.IsType(t, &search.RedisIndex{}, c.Index)
	assert.Nil(t, c.Telemetry)
	assert.NoError(t, c.Health(ctx))
}

func TestSetup_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = port
	cfg.Queue.Type = "redis"

	_, err := Setup(context.Background(), "registry-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestSetup_IndexDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.IndexSync.Enabled = false
	cfg.IndexSync.Backend = "redis"

	c, err := Setup(context.Background(), "registry-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutCache(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	assert.Nil(t, c.Index)
	assert.Nil(t, c.Cache)
	assert.Nil(t, c.Redis)
}
