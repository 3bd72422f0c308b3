package container

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/qldp/registry/common/bootstrap"
	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/indexsync"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/repository"
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

func setup(t *testing.T, cfg *config.Config, opts ...bootstrap.Option) *bootstrap.Components {
	t.Helper()
	opts = append([]bootstrap.Option{
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.Discard()),
		bootstrap.WithoutDB(),
	}, opts...)
	components, err := bootstrap.Setup(context.Background(), "registry-test", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = components.Shutdown(context.Background()) })
	return components
}

func TestNewContainer_RequiresDB(t *testing.T) {
	_, err := NewContainer(setup(t, testConfig(t)))
	assert.Error(t, err)
}

func TestNewContainerWithStore(t *testing.T) {
	c, err := NewContainerWithStore(setup(t, testConfig(t)), repository.NewMemoryStore())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.IsType(t, &indexsync.Synchronizer{}, c.Dispatcher)
	assert.Same(t, c.Sync, c.Dispatcher)
	assert.NotNil(t, c.Worker)
	assert.NotNil(t, c.Metrics)
	assert.Nil(t, c.Limiter)
	assert.NotNil(t, c.FamilyMembers)
	assert.NotNil(t, c.TempAbsents)
	assert.NotNil(t, c.Replies)
}

func TestNewContainerWithStore_IndexSyncDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.IndexSync.Enabled = false

	c, err := NewContainerWithStore(setup(t, cfg, bootstrap.WithoutTelemetry()), repository.NewMemoryStore())
	require.NoError(t, err)

	assert.Equal(t, indexsync.Nop{}, c.Dispatcher)
	assert.Nil(t, c.Sync)
	assert.Nil(t, c.Worker)
	assert.NotPanics(t, c.Close)
	assert.Nil(t, c.Metrics)
}

func TestNewContainerWithStore_RateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port

	c, err := NewContainerWithStore(setup(t, cfg), repository.NewMemoryStore())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.NotNil(t, c.Limiter)

	res, err := c.Limiter.Allow(context.Background(), "user:uid-1", cfg.RateLimit.Limit, cfg.RateLimit.Window)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
