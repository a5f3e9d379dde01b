package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port           int      `env:"PORT" envDefault:"8080"`
	DatabaseURL    string   `env:"DATABASE_URL,required"`
	RedisURL       string   `env:"REDIS_URL,required"`
	AuthKey        string   `env:"HUB_AUTH_KEY"`
	AuthKeyHash    string   `env:"HUB_AUTH_KEY_HASH"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	FetchTimeoutSeconds      int `env:"FETCH_TIMEOUT_SECONDS" envDefault:"30"`
	TranscribeTimeoutSeconds int `env:"TRANSCRIBE_TIMEOUT_SECONDS" envDefault:"86400"`
	VCRouteTTLSeconds        int `env:"VC_ROUTE_TTL_SECONDS" envDefault:"900"`

	TranscribeAPIURL   string `env:"TRANSCRIBE_API_URL"`
	TranscribeAPIKey   string `env:"TRANSCRIBE_API_KEY"`
	AudioSampleRate    int    `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioMinDurationMs int    `env:"AUDIO_MIN_DURATION_MS" envDefault:"1000"`
	AudioMaxBytes      int    `env:"AUDIO_MAX_BYTES" envDefault:"16777216"`

	TTSRateLimitPerMin      int `env:"TTS_RATE_LIMIT_PER_MIN" envDefault:"600"`
	ConnectRateLimitPerMin  int `env:"WS_CONNECT_RATE_LIMIT_PER_MIN" envDefault:"60"`
	StatsReportIntervalSecs int `env:"STATS_REPORT_INTERVAL_SECONDS" envDefault:"3600"`

	StatsAPIURL string `env:"STATS_API_URL"`
	StatsAPIKey string `env:"STATS_API_KEY"`
	BotID       string `env:"BOT_ID"`
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) TranscribeTimeout() time.Duration {
	return time.Duration(c.TranscribeTimeoutSeconds) * time.Second
}

func (c *Config) VCRouteTTL() time.Duration {
	return time.Duration(c.VCRouteTTLSeconds) * time.Second
}

func (c *Config) StatsReportInterval() time.Duration {
	return time.Duration(c.StatsReportIntervalSecs) * time.Second
}

func (c *Config) AudioMinDuration() time.Duration {
	return time.Duration(c.AudioMinDurationMs) * time.Millisecond
}

// MaxMessageBytes bounds a single websocket frame. Audio travels base64
// encoded inside JSON, so the limit leaves room for the 4/3 expansion plus
// the envelope.
func (c *Config) MaxMessageBytes() int64 {
	return int64(c.AudioMaxBytes)/3*4 + 4 + WSEnvelopeOverheadBytes
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.AuthKey == "" && c.AuthKeyHash == "" {
		return fmt.Errorf("one of HUB_AUTH_KEY or HUB_AUTH_KEY_HASH must be set")
	}
	if c.AuthKeyHash != "" {
		if !strings.HasPrefix(c.AuthKeyHash, "$2a$") &&
			!strings.HasPrefix(c.AuthKeyHash, "$2b$") &&
			!strings.HasPrefix(c.AuthKeyHash, "$2y$") {
			return fmt.Errorf("HUB_AUTH_KEY_HASH must be a bcrypt hash (generate with: go run scripts/hash-key.go <key>)")
		}
	}
	if c.FetchTimeoutSeconds <= 0 || c.TranscribeTimeoutSeconds <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS and TRANSCRIBE_TIMEOUT_SECONDS must be positive")
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive")
	}
	if c.AudioMaxBytes <= 0 {
		return fmt.Errorf("AUDIO_MAX_BYTES must be positive")
	}

	if isProduction {
		if c.AuthKeyHash == "" {
			if err := validateSecret("HUB_AUTH_KEY", c.AuthKey); err != nil {
				return err
			}
		}
		if c.TranscribeAPIURL == "" {
			log.Warn().Msg("TRANSCRIBE_API_URL is empty in production: CALL_TTS_API requests will fail")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
