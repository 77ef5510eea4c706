package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  user: app
  name: flights
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 2000, cfg.Database.LockTimeoutMS)
	assert.Equal(t, LockingPessimistic, cfg.Booking.Locking)
	assert.Equal(t, 5, cfg.Booking.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "host=localhost port=5432 user=app password= dbname=flights sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":9090"
  docs_enabled: true
booking:
  locking: optimistic
  max_attempts: 8
kafka:
  brokers: ["kafka:9092"]
  booking_events_topic: booking-events
log:
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.True(t, cfg.HTTP.DocsEnabled)
	assert.Equal(t, LockingOptimistic, cfg.Booking.Locking)
	assert.Equal(t, 8, cfg.Booking.MaxAttempts)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_InvalidLocking(t *testing.T) {
	path := writeConfig(t, `
booking:
  locking: hopeful
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking.locking")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadConfig_TelegramNeedsChat(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.chat_id")
}
