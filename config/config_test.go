package config

import (
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 || cfg.Server.Mode != "release" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should default to enabled")
	}
	if cfg.RateLimit.RequestsPerSecond != 5.0 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate limit defaults = %+v", cfg.RateLimit)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("FETCHKIT_PORT", "9191")
	t.Setenv("FETCHKIT_MODE", "debug")
	t.Setenv("FETCHKIT_AUTH_ENABLED", "false")
	t.Setenv("FETCHKIT_API_KEYS", "key-a, key-b ,key-c")
	t.Setenv("FETCHKIT_RATE_RPS", "2.5")
	t.Setenv("FETCHKIT_STORAGE_DB", "/tmp/elements.db")

	cfg := Load()
	if cfg.Server.Port != 9191 || cfg.Server.Mode != "debug" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Auth.Enabled {
		t.Error("auth should be disabled")
	}
	if want := []string{"key-a", "key-b", "key-c"}; !reflect.DeepEqual(cfg.Auth.APIKeys, want) {
		t.Errorf("api keys = %v, want %v", cfg.Auth.APIKeys, want)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("rps = %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Fetch.StorageDatabase != "/tmp/elements.db" {
		t.Errorf("storage db = %q", cfg.Fetch.StorageDatabase)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("FETCHKIT_PORT", "not-a-port")
	t.Setenv("FETCHKIT_RATE_RPS", "fast")
	t.Setenv("FETCHKIT_AUTH_ENABLED", "maybe")

	cfg := Load()
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want the default back", cfg.Server.Port)
	}
	if cfg.RateLimit.RequestsPerSecond != 5.0 {
		t.Errorf("rps = %v, want the default back", cfg.RateLimit.RequestsPerSecond)
	}
	if !cfg.Auth.Enabled {
		t.Error("unparseable bool must keep the default")
	}
}
