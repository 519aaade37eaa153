// Package config loads service configuration from the environment and owns
// the one-time logging setup.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Fetch     FetchConfig
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// FetchConfig carries service-wide fetch defaults.
type FetchConfig struct {
	// StorageDatabase is the SQLite path for the auto-match store.
	StorageDatabase string

	// Debug enables verbose parsing logs.
	Debug bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("FETCHKIT_HOST", "0.0.0.0"),
			Port: envIntOr("FETCHKIT_PORT", 8080),
			Mode: envOr("FETCHKIT_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("FETCHKIT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("FETCHKIT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("FETCHKIT_RATE_RPS", 5.0),
			Burst:             envIntOr("FETCHKIT_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("FETCHKIT_LOG_LEVEL", "info"),
			Format: envOr("FETCHKIT_LOG_FORMAT", "json"),
		},
		Fetch: FetchConfig{
			StorageDatabase: os.Getenv("FETCHKIT_STORAGE_DB"),
			Debug:           envBoolOr("FETCHKIT_DEBUG", false),
		},
	}
}

// SetupLogging configures the process-wide slog default. Hosts call this
// exactly once at startup; no other package touches global logging state.
func SetupLogging(cfg LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
