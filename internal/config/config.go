// Package config loads the runtime knobs that sit outside a layout file:
// buffer sizing, the re-match iteration budget, log level, and the listen
// addresses the demo programs bind to. Layout content (rules, options)
// never lives here — only ambient engine behavior, keeping the "layout is
// immutable after load" invariant intact.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root runtime configuration block.
type Config struct {
	Engine struct {
		ComposingCap  int    `toml:"composing_cap"`
		RematchBudget int    `toml:"rematch_budget"`
		LogLevel      string `toml:"log_level"` // debug, info, warn, error
	} `toml:"engine"`

	Console struct {
		DefaultLayout      string `toml:"default_layout"`
		ReloadHotkey       string `toml:"reload_hotkey"`
		ToggleSwitchHotkey string `toml:"toggle_switch_hotkey"`
		ToggleSwitchIndex  uint16 `toml:"toggle_switch_index"`
	} `toml:"console"`

	Server struct {
		ListenAddr string `toml:"listen_addr"`
	} `toml:"server"`
}

// Default returns the configuration a fresh install would have.
func Default() *Config {
	cfg := &Config{}
	cfg.Engine.ComposingCap = 1024
	cfg.Engine.RematchBudget = 16
	cfg.Engine.LogLevel = "info"
	cfg.Console.DefaultLayout = ""
	cfg.Console.ReloadHotkey = "Ctrl+R"
	cfg.Console.ToggleSwitchHotkey = "F2"
	cfg.Console.ToggleSwitchIndex = 1
	cfg.Server.ListenAddr = "127.0.0.1:8787"
	return cfg
}

// ConfigPath returns the platform-specific config file path.
func ConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "kmcore")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		dir = filepath.Join(home, ".config", "kmcore")
	default:
		return "config.toml"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// Load reads the default config file, or returns Default() if it doesn't
// exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from path, falling back to Default() when
// the file is absent.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes c to path, creating parent directories as needed.
func (c *Config) SaveTo(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("config: create dir: %w", err)
		}
	}
	f, err := os.Create(path) // #nosec G304 -- user-chosen config path
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// ParseLogLevel maps the engine.log_level string to an slog.Level,
// defaulting to Info for an empty or unrecognized value.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
