// Package config loads the bridge configuration from an optional yaml file
// with environment-variable overrides. The override names match the ones the
// service has always honored (UPTIME_KUMA_URL and friends); a .env file in
// the working directory is folded into the environment first.
package config

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath     = "KUMA_BRIDGE_CONFIG"
	DefaultConfigPath = "/etc/kumabridge/bridge.yaml"
)

type Config struct {
	Kuma KumaConfig `yaml:"kuma"`
	API  APIConfig  `yaml:"api"`
	Bulk BulkConfig `yaml:"bulk"`
}

type KumaConfig struct {
	URL             string `yaml:"url"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Token           string `yaml:"token"`
	CallTimeoutSec  int    `yaml:"call_timeout_sec"`
	LoginTimeoutSec int    `yaml:"login_timeout_sec"`
	StaleAfterSec   int    `yaml:"snapshot_stale_sec"`
}

type APIConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_sec"`
}

type BulkConfig struct {
	PaceMillis int `yaml:"pace_ms"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Kuma: KumaConfig{
			URL:             "http://localhost:3001",
			Username:        "admin",
			Password:        "admin",
			CallTimeoutSec:  10,
			LoginTimeoutSec: 5,
			StaleAfterSec:   120,
		},
		API: APIConfig{
			Host:            "127.0.0.1",
			Port:            5001,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 60,
			IdleTimeoutSec:  60,
		},
		Bulk: BulkConfig{
			PaceMillis: 500,
		},
	}
}

// Load reads the configuration file at path, overlaying it on the defaults
// and then applying environment overrides. A missing file at the default
// path is tolerated; an explicitly configured path must exist.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(filepath.Clean(path))
	switch {
	case err == nil:
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
		// Defaults plus environment are a complete configuration.
	default:
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}

	godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromEnv resolves the config path from the environment and loads it.
func LoadFromEnv(ctx context.Context) (Config, error) {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = DefaultConfigPath
	}
	return Load(ctx, path)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("UPTIME_KUMA_URL"); v != "" {
		cfg.Kuma.URL = v
	}
	if v := os.Getenv("UPTIME_KUMA_USERNAME"); v != "" {
		cfg.Kuma.Username = v
	}
	if v := os.Getenv("UPTIME_KUMA_PASSWORD"); v != "" {
		cfg.Kuma.Password = v
	}
	if v := os.Getenv("UPTIME_KUMA_TOKEN"); v != "" {
		cfg.Kuma.Token = v
	}
	if v := os.Getenv("API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

func (c Config) validate() error {
	if c.Kuma.URL == "" {
		return fmt.Errorf("kuma url must be configured")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port %d out of range", c.API.Port)
	}
	return nil
}

// Addr returns the facade listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// CallTimeout returns the per-command acknowledgement budget.
func (c KumaConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSec) * time.Second
}

// LoginTimeout returns the login acknowledgement budget.
func (c KumaConfig) LoginTimeout() time.Duration {
	return time.Duration(c.LoginTimeoutSec) * time.Second
}

// StaleAfter returns the monitor snapshot age readiness threshold.
func (c KumaConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSec) * time.Second
}

// Pace returns the delay between consecutive commands in a batch.
func (c BulkConfig) Pace() time.Duration {
	return time.Duration(c.PaceMillis) * time.Millisecond
}

// ReadTimeout returns the HTTP server read timeout.
func (c APIConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the HTTP server write timeout. Batch endpoints hold
// the response open for the whole paced run, so this stays generous.
func (c APIConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// IdleTimeout returns the HTTP server idle timeout.
func (c APIConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}
