// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Trial TrialConfig `toml:"trial"`
}

// TrialConfig maps trial protocol settings.
type TrialConfig struct {
	ExposureMs     *int    `toml:"exposure-ms"`
	AdvanceMs      *int    `toml:"advance-ms"`
	FinalAdvanceMs *int    `toml:"final-advance-ms"`
	ErrorThreshold *int    `toml:"error-threshold"`
	MinLength      *int    `toml:"min-length"`
	MaxLength      *int    `toml:"max-length"`
	GroupSize      *int    `toml:"group-size"`
	Delimiter      *string `toml:"delimiter"`
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
