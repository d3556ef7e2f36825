package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/water")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "postgres://localhost/water", cfg.Database.URL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders.delivered", cfg.Kafka.Topic)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := []byte("server:\n  port: 9090\nstore:\n  timeout: 3s\nevents:\n  driver: redis\nredis:\n  channel: deliveries\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, DriverRedis, cfg.Events.Driver)
	assert.Equal(t, "deliveries", cfg.Redis.Channel)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}, Events: EventsConfig{Driver: DriverKafka}}

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")

	cfg.Database.URL = "postgres://x"
	cfg.Events.Driver = "carrier-pigeon"
	err = cfg.Validate(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
