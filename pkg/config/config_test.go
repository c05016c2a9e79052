package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, 10.0, c.Acquisition.MaxRate)
	assert.Equal(t, 30*time.Second, c.Acquisition.HeartbeatInterval)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, "uploads", c.Storage.UploadDir)
	assert.False(t, c.Kafka.Enabled)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
acquisition:
  max_rate: 25
  heartbeat_interval: 5s
storage:
  backend: clickhouse
`))
	require.NoError(t, err)
	assert.Equal(t, 25.0, c.Acquisition.MaxRate)
	assert.Equal(t, 5*time.Second, c.Acquisition.HeartbeatInterval)
	assert.Equal(t, "clickhouse", c.Storage.Backend)
}

func TestParseRejectsUnknownBackend(t *testing.T) {
	_, err := Parse([]byte("storage:\n  backend: s3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestParseRejectsKafkaWithoutBrokers(t *testing.T) {
	_, err := Parse([]byte("kafka:\n  enabled: true\n"))
	require.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o644))

	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SENSOR_MAX_RATE", "20")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, 20.0, c.Acquisition.MaxRate)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
}

func TestLoadWithEnvRejectsBadRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o644))
	t.Setenv("SENSOR_MAX_RATE", "fast")

	_, err := LoadWithEnv(path)
	require.Error(t, err)
}
