package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "./accounts.db", cfg.DBPath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 8, cfg.PasswordMinLength)
	assert.Empty(t, cfg.OtelEndpoint)
	assert.Equal(t, "accounts", cfg.ServiceName)
	assert.False(t, cfg.OtelStdout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "secret")
	t.Setenv("ACCOUNTS_HTTP_ADDR", ":9000")
	t.Setenv("ACCOUNTS_TOKEN_TTL", "15m")
	t.Setenv("ACCOUNTS_PASSWORD_MIN_LENGTH", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.PasswordMinLength)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidMinLength(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "secret")
	t.Setenv("ACCOUNTS_PASSWORD_MIN_LENGTH", "0")

	_, err := Load()
	assert.Error(t, err)
}
