package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/erp")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 4096, cfg.QueueCapacity)
	assert.Equal(t, 10, cfg.ContactRatePerSec)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.SMTPHost)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/erp")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("QUEUE_CAPACITY", "128")
	t.Setenv("CONTACT_RATE_PER_SEC", "3")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SMTP_HOST", "mail.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 128, cfg.QueueCapacity)
	assert.Equal(t, 3, cfg.ContactRatePerSec)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "mail.example.com", cfg.SMTPHost)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/erp")
	t.Setenv("QUEUE_CAPACITY", "not-a-number")
	t.Setenv("READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.QueueCapacity)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
}
