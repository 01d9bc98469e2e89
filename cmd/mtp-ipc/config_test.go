package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Session != "demo" {
		t.Errorf("expected default session, got %q", cfg.Session)
	}
	if cfg.PartSize != 64<<10 {
		t.Errorf("expected default part size, got %d", cfg.PartSize)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, "session = \"prod\"\npart_size = 1024\n")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Session != "prod" {
		t.Errorf("expected session prod, got %q", cfg.Session)
	}
	if cfg.PartSize != 1024 {
		t.Errorf("expected part size 1024, got %d", cfg.PartSize)
	}
	// Keys absent from the file keep their defaults.
	if cfg.PayloadSize != 256<<10 {
		t.Errorf("expected default payload size, got %d", cfg.PayloadSize)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := writeConfig(t, "part_size = -1\n")
	if _, err := loadConfig(path); err == nil {
		t.Error("expected error for negative part_size")
	}

	path = writeConfig(t, "session = \"\"\n")
	if _, err := loadConfig(path); err == nil {
		t.Error("expected error for empty session")
	}
}
