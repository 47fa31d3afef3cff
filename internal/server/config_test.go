package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr %s", cfg.ListenAddr)
	}
	if cfg.Scans.MaxParallelScans != 4 {
		t.Fatalf("unexpected max parallel scans %d", cfg.Scans.MaxParallelScans)
	}
	if cfg.Auth.CookieName != "gqlcheck_session" {
		t.Fatalf("unexpected cookie name %s", cfg.Auth.CookieName)
	}
}

func TestLoadServerConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
listen_addr: ":9090"
database:
  dsn: "postgres://localhost/gqlcheck"
probe:
  timeout_sec: 10
scans:
  max_parallel_scans: 2
limits:
  quick_scan_rpm: 3
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected listen override, got %s", cfg.ListenAddr)
	}
	if cfg.Probe.TimeoutSec != 10 {
		t.Fatalf("expected probe timeout 10, got %d", cfg.Probe.TimeoutSec)
	}
	if cfg.Scans.MaxParallelScans != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Scans.MaxParallelScans)
	}
	if cfg.Limits.QuickScanRPM != 3 {
		t.Fatalf("expected quick scan rpm 3, got %d", cfg.Limits.QuickScanRPM)
	}
	// untouched fields keep their defaults after normalize
	if cfg.Scans.DefaultTimeoutSec != 120 {
		t.Fatalf("expected default scan timeout, got %d", cfg.Scans.DefaultTimeoutSec)
	}
}

func TestLoadServerConfigMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Probe.UserAgent != "gqlcheck" {
		t.Fatalf("expected default user agent, got %s", cfg.Probe.UserAgent)
	}
}
