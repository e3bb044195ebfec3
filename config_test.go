package splatcard

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "splatcard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.DatabasePath != "data/image/image.db" {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.PlainTimeout != 5*time.Second {
		t.Fatalf("PlainTimeout = %v", cfg.PlainTimeout)
	}
	if cfg.RenderCacheBackend != BackendSQLite || cfg.RenderCacheTTL != time.Hour {
		t.Fatalf("render cache = %q/%v", cfg.RenderCacheBackend, cfg.RenderCacheTTL)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
addr: ":5000"
database_path: /var/lib/splatcard/image.db
render_cache_ttl: 30m
protected_hosts:
  - splatoon3.ink
  - cdn.example.com
language: zh
`)
	t.Setenv("SPLATCARD_ADDR", ":4000")
	t.Setenv("SPLATCARD_API_TOKEN", "tok")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":4000" {
		t.Fatalf("env did not override file: Addr = %q", cfg.Addr)
	}
	if cfg.DatabasePath != "/var/lib/splatcard/image.db" {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.RenderCacheTTL != 30*time.Minute {
		t.Fatalf("RenderCacheTTL = %v", cfg.RenderCacheTTL)
	}
	if want := []string{"splatoon3.ink", "cdn.example.com"}; !reflect.DeepEqual(cfg.ProtectedHosts, want) {
		t.Fatalf("ProtectedHosts = %v", cfg.ProtectedHosts)
	}
	if cfg.APIToken != "tok" || cfg.Language != "zh" {
		t.Fatalf("APIToken=%q Language=%q", cfg.APIToken, cfg.Language)
	}
}

func TestLoadConfigEnvList(t *testing.T) {
	t.Setenv("SPLATCARD_PROTECTED_HOSTS", "a.example,b.example")
	t.Setenv("SPLATCARD_PURGE_INTERVAL", "10m")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if want := []string{"a.example", "b.example"}; !reflect.DeepEqual(cfg.ProtectedHosts, want) {
		t.Fatalf("ProtectedHosts = %v", cfg.ProtectedHosts)
	}
	if cfg.PurgeInterval != 10*time.Minute {
		t.Fatalf("PurgeInterval = %v", cfg.PurgeInterval)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeConfig(t, "addr: [") }},
		{"unknown backend", func(t *testing.T) string { return writeConfig(t, "render_cache_backend: memcached") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(tt.path(t)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SPLATCARD_TEST_ENVOR", "set")
	if got := EnvOr("SPLATCARD_TEST_ENVOR", "fallback"); got != "set" {
		t.Fatalf("EnvOr = %q", got)
	}
	if got := EnvOr("SPLATCARD_TEST_ENVOR_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("EnvOr = %q", got)
	}
}
