// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// LoggerConfig provides settings for the structured logger.
type LoggerConfig interface {
	GetEnv() string
}

// AccountConfig provides account/context settings for number normalization.
type AccountConfig interface {
	GetCountryCode() string
}

// RedisConfig provides settings for the redis-backed association store.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

// PresenceConfig provides settings for the presence polling adapter.
type PresenceConfig interface {
	GetPresenceURL() string
	GetPresencePollInterval() time.Duration
	GetPresenceFailureThreshold() int
}

// HTTPConfig provides settings for the HTTP observer surface.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// Config holds all application configuration.
type Config struct {
	Env string

	HTTPAddr     string
	CORSAllowAll bool
	CORSOrigins  []string

	RedisURL       string
	RedisKeyPrefix string

	PresenceURL              string
	PresencePollInterval     time.Duration
	PresenceFailureThreshold int

	CountryCode string
}

// Load reads configuration from the environment, with .env support for
// local development. Missing optional values fall back to defaults.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),

		HTTPAddr:     getEnv("HTTP_ADDR", ":8086"),
		CORSAllowAll: getEnvBool("CORS_ALLOW_ALL", true),
		CORSOrigins:  getEnvList("CORS_ORIGINS"),

		RedisURL:       getEnv("REDIS_URL", ""),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "callmonitor:"),

		PresenceURL:              getEnv("PRESENCE_URL", ""),
		PresencePollInterval:     getEnvDuration("PRESENCE_POLL_INTERVAL", 2*time.Second),
		PresenceFailureThreshold: getEnvInt("PRESENCE_FAILURE_THRESHOLD", 3),

		CountryCode: getEnv("ACCOUNT_COUNTRY_CODE", "US"),
	}

	return cfg, nil
}

func (c *Config) GetEnv() string                   { return c.Env }
func (c *Config) GetCountryCode() string           { return c.CountryCode }
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetRedisKeyPrefix() string        { return c.RedisKeyPrefix }
func (c *Config) GetPresenceURL() string           { return c.PresenceURL }
func (c *Config) GetPresencePollInterval() time.Duration {
	return c.PresencePollInterval
}
func (c *Config) GetPresenceFailureThreshold() int { return c.PresenceFailureThreshold }
func (c *Config) GetHTTPAddr() string              { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool            { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string         { return c.CORSOrigins }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
