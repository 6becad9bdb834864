package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Defaults are the application paths used before a config file exists.
type Defaults struct {
	ConfigPath string `env:"D2SM_CONFIG_PATH"`
	BaseDir    string `env:"D2SM_HOME"`
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - D2SM_CONFIG_PATH: config file location (default: ~/.config/d2sm.toml)
//   - D2SM_HOME: base directory for d2sm data (default: ~/.local/share/d2sm)
func GetDefaults() (*Defaults, error) {
	var d Defaults
	if err := env.Parse(&d); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if d.ConfigPath == "" || d.BaseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if d.ConfigPath == "" {
			d.ConfigPath = filepath.Join(homeDir, ".config", "d2sm.toml")
		}
		if d.BaseDir == "" {
			d.BaseDir = filepath.Join(homeDir, ".local", "share", "d2sm")
		}
	}

	d.LogDir = filepath.Join(d.BaseDir, "log")
	return &d, nil
}
