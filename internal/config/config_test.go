package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("FetchTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{FetchTimeoutSeconds: 30}
		assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	})

	t.Run("TranscribeTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{TranscribeTimeoutSeconds: 86400}
		assert.Equal(t, 24*time.Hour, cfg.TranscribeTimeout())
	})

	t.Run("VCRouteTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{VCRouteTTLSeconds: 900}
		assert.Equal(t, 15*time.Minute, cfg.VCRouteTTL())
	})

	t.Run("MaxMessageBytes leaves room for base64 audio", func(t *testing.T) {
		cfg := &Config{AudioMaxBytes: 3000}
		assert.Greater(t, cfg.MaxMessageBytes(), int64(4000))
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AuthKey:                  "a-long-enough-shared-secret-for-tests-1234",
			FetchTimeoutSeconds:      30,
			TranscribeTimeoutSeconds: 86400,
			AudioSampleRate:          16000,
			AudioMaxBytes:            1024,
			RedisURL:                 "rediss://localhost:6379",
		}
	}

	t.Run("accepts a valid config", func(t *testing.T) {
		assert.NoError(t, base().Validate(true))
	})

	t.Run("requires a key or key hash", func(t *testing.T) {
		cfg := base()
		cfg.AuthKey = ""
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-bcrypt key hash", func(t *testing.T) {
		cfg := base()
		cfg.AuthKeyHash = "plaintext"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects short key in production", func(t *testing.T) {
		cfg := base()
		cfg.AuthKey = "secret"
		assert.NoError(t, cfg.Validate(false))
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects non-positive timeouts", func(t *testing.T) {
		cfg := base()
		cfg.FetchTimeoutSeconds = 0
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "HUB_AUTH_KEY", "LOG_LEVEL",
		"FETCH_TIMEOUT_SECONDS", "TRANSCRIBE_TIMEOUT_SECONDS", "VC_ROUTE_TTL_SECONDS", "ALLOWED_ORIGINS",
	}
	originalEnv := map[string]string{}
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("FETCH_TIMEOUT_SECONDS")
		os.Unsetenv("TRANSCRIBE_TIMEOUT_SECONDS")
		os.Unsetenv("VC_ROUTE_TTL_SECONDS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 30, cfg.FetchTimeoutSeconds)
		assert.Equal(t, 86400, cfg.TranscribeTimeoutSeconds)
		assert.Equal(t, 900, cfg.VCRouteTTLSeconds)
		assert.Equal(t, 16000, cfg.AudioSampleRate)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("HUB_AUTH_KEY", "shared")
		os.Setenv("FETCH_TIMEOUT_SECONDS", "10")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("ALLOWED_ORIGINS", "a.example.com,b.example.com")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "shared", cfg.AuthKey)
		assert.Equal(t, 10, cfg.FetchTimeoutSeconds)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.AllowedOrigins)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
