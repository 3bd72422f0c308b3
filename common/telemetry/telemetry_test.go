package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ServersFromConfig(t *testing.T) {
	tel := New(config.TelemetryConfig{}, logger.Discard())
	assert.Empty(t, tel.servers)
	require.NotNil(t, tel.Metrics)

	tel = New(config.TelemetryConfig{EnablePprof: true, PprofPort: 6060, EnableMetrics: true, MetricsPort: 9090}, logger.Discard())
	require.Len(t, tel.servers, 2)
	assert.Equal(t, "localhost:6060", tel.servers[0].Addr)
	assert.Equal(t, ":9090", tel.servers[1].Addr)
}

func TestShutdown_WithoutStart(t *testing.T) {
	tel := New(config.TelemetryConfig{EnableMetrics: true, MetricsPort: 0}, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}
