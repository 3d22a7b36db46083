package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsWithoutPath(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig("", "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Interface != "wg0" || cfg.Interval.Std() != 2*time.Second || cfg.WGBinary != "wg" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadConfig_InterfaceOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wgwatch.yaml")
	if err := os.WriteFile(path, []byte("interface: wg1\ninterval: 10s\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := loadConfig(path, "wg7")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Interface != "wg7" || cfg.Interval.Std() != 10*time.Second || cfg.CommandTimeout.Std() != 5*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wgwatch.yaml")
	body := "interface: wg0\ninterval: 1s\ncommand_timeout: 3s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadConfig(path, ""); err == nil {
		t.Fatalf("expected timeout > interval to be rejected")
	}
}
