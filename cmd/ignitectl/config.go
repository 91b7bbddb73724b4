package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ignitectl config.toml key mapping to client settings.
type fileConfig struct {
	Addr    string `toml:"addr"`
	Timeout string `toml:"timeout"`
}

type clientConfig struct {
	Addr    string
	Timeout time.Duration
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		Addr:    "http://127.0.0.1:9400",
		Timeout: 5 * time.Second,
	}
}

// ignitectl loader for TOML config with default overlay.
func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("addr") {
		addr := strings.TrimSpace(raw.Addr)
		if addr != "" {
			cfg.Addr = addr
		}
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		if d <= 0 {
			return clientConfig{}, fmt.Errorf("timeout must be positive")
		}
		cfg.Timeout = d
	}

	if !strings.HasPrefix(cfg.Addr, "http://") && !strings.HasPrefix(cfg.Addr, "https://") {
		cfg.Addr = "http://" + cfg.Addr
	}
	return cfg, nil
}
