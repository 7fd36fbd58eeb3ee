package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(context.Background(), DefaultConfigPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kuma.URL != "http://localhost:3001" {
		t.Fatalf("url = %q", cfg.Kuma.URL)
	}
	if cfg.Addr() != "127.0.0.1:5001" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.Kuma.CallTimeout() != 10*time.Second {
		t.Fatalf("call timeout = %v", cfg.Kuma.CallTimeout())
	}
	if cfg.Bulk.Pace() != 500*time.Millisecond {
		t.Fatalf("pace = %v", cfg.Bulk.Pace())
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	data := []byte(`
kuma:
  url: https://kuma.internal:3001
  username: ops
  password: hunter2
  call_timeout_sec: 20
api:
  host: 0.0.0.0
  port: 8080
bulk:
  pace_ms: 250
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kuma.URL != "https://kuma.internal:3001" {
		t.Fatalf("url = %q", cfg.Kuma.URL)
	}
	if cfg.Kuma.Username != "ops" || cfg.Kuma.Password != "hunter2" {
		t.Fatalf("credentials = %q/%q", cfg.Kuma.Username, cfg.Kuma.Password)
	}
	if cfg.Kuma.CallTimeout() != 20*time.Second {
		t.Fatalf("call timeout = %v", cfg.Kuma.CallTimeout())
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.Bulk.Pace() != 250*time.Millisecond {
		t.Fatalf("pace = %v", cfg.Bulk.Pace())
	}
	// Keys the file omits keep their defaults.
	if cfg.Kuma.LoginTimeoutSec != 5 {
		t.Fatalf("login timeout = %d", cfg.Kuma.LoginTimeoutSec)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte("kuma:\n  url: http://from-file:3001\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("UPTIME_KUMA_URL", "http://from-env:3001")
	t.Setenv("UPTIME_KUMA_USERNAME", "envuser")
	t.Setenv("UPTIME_KUMA_TOKEN", "123456")
	t.Setenv("API_PORT", "9999")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kuma.URL != "http://from-env:3001" {
		t.Fatalf("url = %q, want environment value", cfg.Kuma.URL)
	}
	if cfg.Kuma.Username != "envuser" {
		t.Fatalf("username = %q", cfg.Kuma.Username)
	}
	if cfg.Kuma.Token != "123456" {
		t.Fatalf("token = %q", cfg.Kuma.Token)
	}
	if cfg.API.Port != 9999 {
		t.Fatalf("port = %d", cfg.API.Port)
	}
}

func TestLoadFromEnvUsesConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 6001\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envConfigPath, path)

	cfg, err := LoadFromEnv(context.Background())
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.API.Port != 6001 {
		t.Fatalf("port = %d", cfg.API.Port)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 70000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
