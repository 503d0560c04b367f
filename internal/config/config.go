// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aretw0/exhibit/internal/logging"
)

// Server controls the long-running exhibit process.
type Server struct {
	Addr          string        `env:"EXHIBIT_ADDR"           envDefault:":8080"`
	RedisAddr     string        `env:"EXHIBIT_REDIS_ADDR"`
	RedisPassword string        `env:"EXHIBIT_REDIS_PASSWORD"`
	RedisDB       int           `env:"EXHIBIT_REDIS_DB"       envDefault:"0"`
	SnapshotTTL   time.Duration `env:"EXHIBIT_SNAPSHOT_TTL"   envDefault:"24h"`
	LogLevel      string        `env:"EXHIBIT_LOG_LEVEL"      envDefault:"info"`
	Metrics       bool          `env:"EXHIBIT_METRICS"        envDefault:"true"`
	AudioDir      string        `env:"EXHIBIT_AUDIO_DIR"`

	// SnapshotKeys are base64 AES-256 keys. The first seals new checkpoints; the others
	// only open older ones.
	SnapshotKeys []string `env:"EXHIBIT_SNAPSHOT_KEYS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer reads the server configuration and checks it.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return Server{}, fmt.Errorf("EXHIBIT_LOG_LEVEL: %w", err)
	}
	if cfg.SnapshotTTL < 0 {
		return Server{}, fmt.Errorf("EXHIBIT_SNAPSHOT_TTL must not be negative, got %s", cfg.SnapshotTTL)
	}
	return cfg, nil
}

// UseRedis reports whether snapshots and locks should go to Redis.
func (s Server) UseRedis() bool {
	return s.RedisAddr != ""
}
