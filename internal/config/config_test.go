package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formflow.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.ListenAddr != defaults.ListenAddr {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DraftCap != defaults.DraftCap {
		t.Fatalf("expected default draft cap, got %d", cfg.DraftCap)
	}
	if cfg.AutosaveDebounce != 2*time.Second {
		t.Fatalf("expected default debounce, got %s", cfg.AutosaveDebounce)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9900"
reference_prefix: STAR
draft_cap: 3
autosave_debounce: 500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9900" {
		t.Fatalf("expected file override, got %q", cfg.ListenAddr)
	}
	if cfg.ReferencePrefix != "STAR" {
		t.Fatalf("expected prefix override, got %q", cfg.ReferencePrefix)
	}
	if cfg.DraftCap != 3 {
		t.Fatalf("expected draft cap override, got %d", cfg.DraftCap)
	}
	if cfg.AutosaveDebounce != 500*time.Millisecond {
		t.Fatalf("expected debounce override, got %s", cfg.AutosaveDebounce)
	}
	// Untouched keys keep their defaults.
	if cfg.Endpoint != DefaultConfig().Endpoint {
		t.Fatalf("expected default endpoint, got %q", cfg.Endpoint)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `listen_addr: ":9900"`)
	t.Setenv("RARE_LISTEN_ADDR", ":7700")
	t.Setenv("RARE_REFERENCE_PREFIX", "ENV")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7700" {
		t.Fatalf("expected env override, got %q", cfg.ListenAddr)
	}
	if cfg.ReferencePrefix != "ENV" {
		t.Fatalf("expected env prefix, got %q", cfg.ReferencePrefix)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty listen addr", `listen_addr: ""`},
		{"empty endpoint", `endpoint: ""`},
		{"zero draft cap", `draft_cap: 0`},
		{"negative quota", `storage_quota_bytes: -1`},
		{"zero submit timeout", `submit_timeout: 0s`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.doc)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
