package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// demoConfig holds the runtime settings of the demo client.
type demoConfig struct {
	Session     string
	PartSize    int
	PayloadSize int
	Verbose     bool
}

// fileConfig is the TOML key mapping for demoConfig.
type fileConfig struct {
	Session     string `toml:"session"`
	PartSize    int    `toml:"part_size"`
	PayloadSize int    `toml:"payload_size"`
	Verbose     bool   `toml:"verbose"`
}

func defaultConfig() demoConfig {
	return demoConfig{
		Session:     "demo",
		PartSize:    64 << 10,
		PayloadSize: 256 << 10,
		Verbose:     false,
	}
}

// loadConfig overlays the TOML file at path on the defaults. An empty path
// returns the defaults unchanged.
func loadConfig(path string) (demoConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return demoConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("session") {
		cfg.Session = strings.TrimSpace(raw.Session)
	}
	if meta.IsDefined("part_size") {
		cfg.PartSize = raw.PartSize
	}
	if meta.IsDefined("payload_size") {
		cfg.PayloadSize = raw.PayloadSize
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	if cfg.Session == "" {
		return demoConfig{}, fmt.Errorf("config %s: session must not be empty", path)
	}
	if cfg.PartSize <= 0 {
		return demoConfig{}, fmt.Errorf("config %s: part_size must be positive, got %d", path, cfg.PartSize)
	}

	return cfg, nil
}
