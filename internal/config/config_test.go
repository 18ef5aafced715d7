package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_PATH", "JWT_SECRET", "TOKEN_TTL", "ALLOWED_ORIGINS", "LOG_LEVEL", "APP_ENV", "EVENT_RETENTION", "JANITOR_SCHEDULE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "./tweetapp.db", cfg.DatabasePath)
	assert.Equal(t, "0 3 * * *", cfg.JanitorSchedule)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.EventRetention)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/x.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ENV", "production")
	t.Setenv("EVENT_RETENTION", "48h")
	t.Setenv("JANITOR_SCHEDULE", "*/5 * * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 48*time.Hour, cfg.EventRetention)
	assert.Equal(t, "*/5 * * * *", cfg.JanitorSchedule)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("port", func(t *testing.T) {
		t.Setenv("PORT", "eighty")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("token ttl", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("TOKEN_TTL", "forever")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing secret in production", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("TOKEN_TTL", "1h")
		t.Setenv("EVENT_RETENTION", "1h")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})
}
