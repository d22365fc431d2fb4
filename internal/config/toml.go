// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Data    DataConfig    `toml:"data"`
	Store   StoreConfig   `toml:"store"`
	Suggest SuggestConfig `toml:"suggest"`
}

// DataConfig maps dataset settings.
type DataConfig struct {
	Path *string `toml:"path"`
	Lang *string `toml:"lang"`
}

// StoreConfig maps log storage settings.
type StoreConfig struct {
	Path *string `toml:"path"`
}

// SuggestConfig maps ranking settings.
type SuggestConfig struct {
	Limit          *int     `toml:"limit"`
	CooldownDays   *float64 `toml:"cooldown-days"`
	PassHardLimit  *int     `toml:"pass-hard-limit"`
	PassRateLimit  *float64 `toml:"pass-rate-limit"`
	RateMinTotal   *int     `toml:"rate-min-total"`
	RecencyCapDays *float64 `toml:"recency-cap-days"`
	Jitter         *float64 `toml:"jitter"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
