// Package config owns daemon configuration loading.
//
// Ownership boundary:
// - TOML parsing and defaulting for the activation daemon
// - validation of required endpoints and timings
// - config file templates for bootstrap tooling
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type DaemonConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	StorePath   string   `toml:"store_path"`
	AuthToken   string   `toml:"auth_token"`

	Gate     GateConfig     `toml:"gate"`
	Provider ProviderConfig `toml:"provider"`
	Probe    ProbeConfig    `toml:"probe"`
	Timing   TimingConfig   `toml:"timing"`
}

type GateConfig struct {
	URL string `toml:"url"`
	Key string `toml:"key"`
}

type ProviderConfig struct {
	URL string `toml:"url"`
}

type ProbeConfig struct {
	Addr            string `toml:"addr"`
	IntervalSeconds int    `toml:"interval_seconds"`
}

// TimingConfig carries the activation timings in whole units; zero
// values fall back to the orchestrator defaults.
type TimingConfig struct {
	GlobalTimeoutSeconds     int `toml:"global_timeout_seconds"`
	DebounceSeconds          int `toml:"debounce_seconds"`
	OrganicGraceDelaySeconds int `toml:"organic_grace_delay_seconds"`
	PermissionCooldownHours  int `toml:"permission_cooldown_hours"`
}

func LoadDaemonConfig(path string) (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "igniterd"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9400"
	}
	if cfg.Probe.Addr == "" {
		cfg.Probe.Addr = "1.1.1.1:443"
	}
	if cfg.Probe.IntervalSeconds <= 0 {
		cfg.Probe.IntervalSeconds = 5
	}
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("daemon config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("daemon config missing addr")
	}
	if strings.TrimSpace(cfg.Gate.URL) == "" {
		return fmt.Errorf("daemon config missing gate.url")
	}
	if strings.TrimSpace(cfg.Gate.Key) == "" {
		return fmt.Errorf("daemon config missing gate.key")
	}
	if strings.TrimSpace(cfg.Provider.URL) == "" {
		return fmt.Errorf("daemon config missing provider.url")
	}
	if cfg.Timing.GlobalTimeoutSeconds < 0 ||
		cfg.Timing.DebounceSeconds < 0 ||
		cfg.Timing.OrganicGraceDelaySeconds < 0 ||
		cfg.Timing.PermissionCooldownHours < 0 {
		return fmt.Errorf("daemon config timings must not be negative")
	}
	return nil
}
