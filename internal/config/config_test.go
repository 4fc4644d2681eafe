package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine.ComposingCap != 1024 {
		t.Errorf("ComposingCap = %d, want 1024", cfg.Engine.ComposingCap)
	}
	if cfg.Engine.RematchBudget != 16 {
		t.Errorf("RematchBudget = %d, want 16", cfg.Engine.RematchBudget)
	}
	if cfg.Engine.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Engine.LogLevel)
	}
	if cfg.Console.ReloadHotkey != "Ctrl+R" {
		t.Errorf("ReloadHotkey = %q, want Ctrl+R", cfg.Console.ReloadHotkey)
	}
	if cfg.Console.ToggleSwitchHotkey != "F2" {
		t.Errorf("ToggleSwitchHotkey = %q, want F2", cfg.Console.ToggleSwitchHotkey)
	}
	if cfg.Server.ListenAddr == "" {
		t.Error("ListenAddr should not be empty")
	}
}

func TestLoadFromMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.ComposingCap != Default().Engine.ComposingCap {
		t.Error("expected default config when file is absent")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmcore.toml")

	cfg := Default()
	cfg.Engine.ComposingCap = 2048
	cfg.Engine.LogLevel = "debug"
	cfg.Console.DefaultLayout = "layouts/demo.km2"
	cfg.Server.ListenAddr = "0.0.0.0:9999"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Engine.ComposingCap != 2048 {
		t.Errorf("ComposingCap = %d, want 2048", loaded.Engine.ComposingCap)
	}
	if loaded.Engine.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", loaded.Engine.LogLevel)
	}
	if loaded.Console.DefaultLayout != "layouts/demo.km2" {
		t.Errorf("DefaultLayout = %q, want layouts/demo.km2", loaded.Console.DefaultLayout)
	}
	if loaded.Server.ListenAddr != "0.0.0.0:9999" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:9999", loaded.Server.ListenAddr)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLogLevel(input); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
