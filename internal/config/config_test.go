package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer_Defaults(t *testing.T) {
	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Metrics)
	assert.False(t, cfg.UseRedis())
}

func TestLoadServer_FromEnv(t *testing.T) {
	t.Setenv("EXHIBIT_ADDR", "127.0.0.1:9000")
	t.Setenv("EXHIBIT_REDIS_ADDR", "localhost:6379")
	t.Setenv("EXHIBIT_REDIS_DB", "2")
	t.Setenv("EXHIBIT_SNAPSHOT_TTL", "90m")
	t.Setenv("EXHIBIT_LOG_LEVEL", "debug")
	t.Setenv("EXHIBIT_METRICS", "false")
	t.Setenv("EXHIBIT_AUDIO_DIR", "/srv/audio")
	t.Setenv("EXHIBIT_SNAPSHOT_KEYS", "new,old")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.True(t, cfg.UseRedis())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 90*time.Minute, cfg.SnapshotTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, "/srv/audio", cfg.AudioDir)
	assert.Equal(t, []string{"new", "old"}, cfg.SnapshotKeys)
}

func TestLoadServer_Invalid(t *testing.T) {
	t.Run("level", func(t *testing.T) {
		t.Setenv("EXHIBIT_LOG_LEVEL", "loud")
		_, err := LoadServer()
		assert.ErrorContains(t, err, "EXHIBIT_LOG_LEVEL")
	})
	t.Run("db", func(t *testing.T) {
		t.Setenv("EXHIBIT_REDIS_DB", "zero")
		_, err := LoadServer()
		assert.ErrorContains(t, err, "parse env")
	})
	t.Run("ttl", func(t *testing.T) {
		t.Setenv("EXHIBIT_SNAPSHOT_TTL", "-1h")
		_, err := LoadServer()
		assert.Error(t, err)
	})
}
