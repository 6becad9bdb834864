package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("D2SM_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("D2SM_HOME", "/custom/d2sm")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults.ConfigPath != "/custom/config.toml" {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, "/custom/config.toml")
		}
		if defaults.BaseDir != "/custom/d2sm" {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, "/custom/d2sm")
		}
		if defaults.LogDir != "/custom/d2sm/log" {
			t.Errorf("LogDir = %q, want %q", defaults.LogDir, "/custom/d2sm/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("D2SM_CONFIG_PATH", "")
		t.Setenv("D2SM_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "d2sm.toml")
		if defaults.ConfigPath != wantConfig {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "d2sm")
		if defaults.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults.LogDir != wantLog {
			t.Errorf("LogDir = %q, want %q", defaults.LogDir, wantLog)
		}
	})

	t.Run("home only overrides base dir", func(t *testing.T) {
		t.Setenv("D2SM_CONFIG_PATH", "")
		t.Setenv("D2SM_HOME", "/data/d2sm")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		if want := filepath.Join(homeDir, ".config", "d2sm.toml"); defaults.ConfigPath != want {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, want)
		}
		if defaults.BaseDir != "/data/d2sm" {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, "/data/d2sm")
		}
	})
}
