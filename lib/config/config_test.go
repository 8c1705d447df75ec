// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	if cfg.Storage.Compression != "auto" {
		t.Errorf("expected compression=auto, got %s", cfg.Storage.Compression)
	}

	if cfg.Storage.CacheTTL != 5*time.Minute {
		t.Errorf("expected cache_ttl=5m, got %s", cfg.Storage.CacheTTL)
	}

	if filepath.Base(cfg.DatabasePath()) != "registry.db" {
		t.Errorf("expected database under root, got %s", cfg.DatabasePath())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_RequiresRegistryConfig(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when REGISTRY_CONFIG not set, got nil")
	}

	if !strings.HasPrefix(err.Error(), "REGISTRY_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithRegistryConfig(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging
storage:
  root: /test/root
`)
	t.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}

	if cfg.DatabasePath() != "/test/root/registry.db" {
		t.Errorf("expected database=/test/root/registry.db, got %s", cfg.DatabasePath())
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging
log_level: debug

storage:
  database: /data/registry.sqlite
  pool_size: 8
  compression: zstd
  cache_ttl: 90s
  cache_cleanup: 3m

import:
  preserve_global_id: true
  report_dangling: true

branching:
  semver: coerce

archive:
  recipients_file: /etc/registry/recipients.txt
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level=debug, got %s", cfg.LogLevel)
	}
	if cfg.DatabasePath() != "/data/registry.sqlite" {
		t.Errorf("expected database=/data/registry.sqlite, got %s", cfg.DatabasePath())
	}
	if cfg.Storage.PoolSize != 8 {
		t.Errorf("expected pool_size=8, got %d", cfg.Storage.PoolSize)
	}
	if cfg.Storage.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Storage.Compression)
	}
	if cfg.Storage.CacheTTL != 90*time.Second || cfg.Storage.CacheCleanup != 3*time.Minute {
		t.Errorf("expected cache 90s/3m, got %s/%s", cfg.Storage.CacheTTL, cfg.Storage.CacheCleanup)
	}
	if !cfg.Import.PreserveGlobalID || cfg.Import.PreserveContentID || !cfg.Import.ReportDangling {
		t.Errorf("unexpected import config: %+v", cfg.Import)
	}
	if cfg.Branching.Semver != "coerce" {
		t.Errorf("expected semver=coerce, got %s", cfg.Branching.Semver)
	}
	if cfg.Archive.RecipientsFile != "/etc/registry/recipients.txt" {
		t.Errorf("expected recipients_file, got %q", cfg.Archive.RecipientsFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: production

storage:
  root: /default/root
  compression: lz4

production:
  log_level: warn
  storage:
    root: /prod/root
  import:
    preserve_content_id: true
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Storage.Root != "/prod/root" {
		t.Errorf("expected root=/prod/root, got %s", cfg.Storage.Root)
	}
	if cfg.Storage.Compression != "lz4" {
		t.Errorf("expected compression=lz4 from base, got %s", cfg.Storage.Compression)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log_level=warn, got %s", cfg.LogLevel)
	}
	if cfg.Import.PreserveGlobalID || !cfg.Import.PreserveContentID {
		t.Errorf("expected import section replaced, got %+v", cfg.Import)
	}
	// An explicit production section replaces the built-in production
	// defaults entirely.
	if cfg.Branching.Semver != "disabled" {
		t.Errorf("expected semver=disabled, got %s", cfg.Branching.Semver)
	}
}

func TestProductionDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if !cfg.Import.PreserveGlobalID || !cfg.Import.PreserveContentID {
		t.Errorf("expected production to preserve identifiers, got %+v", cfg.Import)
	}
	if cfg.Branching.Semver != "strict" {
		t.Errorf("expected semver=strict, got %s", cfg.Branching.Semver)
	}
}

func TestNonMatchingOverridesIgnored(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: development
storage:
  root: /dev/root
staging:
  storage:
    root: /staging/root
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Storage.Root != "/dev/root" {
		t.Errorf("expected root=/dev/root, got %s", cfg.Storage.Root)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("REGISTRY_TEST_KEYS", "/keys")

	cfg, err := LoadFile(writeConfig(t, `
storage:
  root: /srv/registry
  database: ${REGISTRY_ROOT}/db/registry.db
archive:
  recipients_file: ${REGISTRY_TEST_KEYS}/recipients.txt
  identity_file: ${REGISTRY_TEST_UNSET:-/fallback}/identity.txt
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Storage.Database != "/srv/registry/db/registry.db" {
		t.Errorf("expected database under root, got %s", cfg.Storage.Database)
	}
	if cfg.Archive.RecipientsFile != "/keys/recipients.txt" {
		t.Errorf("expected env expansion, got %s", cfg.Archive.RecipientsFile)
	}
	if cfg.Archive.IdentityFile != "/fallback/identity.txt" {
		t.Errorf("expected default expansion, got %s", cfg.Archive.IdentityFile)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("REGISTRY_TEST_VAR", "from-env")

	vars := map[string]string{"REGISTRY_ROOT": "/root"}
	tests := []struct {
		input    string
		expected string
	}{
		{"${REGISTRY_ROOT}/db", "/root/db"},
		{"${REGISTRY_TEST_VAR}", "from-env"},
		{"${REGISTRY_TEST_MISSING:-default}", "default"},
		{"${REGISTRY_TEST_MISSING}", ""},
		{"no variables", "no variables"},
	}

	for _, test := range tests {
		if result := expandVars(test.input, vars); result != test.expected {
			t.Errorf("expandVars(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid default", func(*Config) {}, ""},
		{"invalid environment", func(c *Config) { c.Environment = "invalid" }, "invalid environment"},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"no database", func(c *Config) { c.Storage.Root = ""; c.Storage.Database = "" }, "storage.root or storage.database"},
		{"negative pool", func(c *Config) { c.Storage.PoolSize = -1 }, "pool_size"},
		{"bad compression", func(c *Config) { c.Storage.Compression = "brotli" }, "storage.compression"},
		{"bad semver", func(c *Config) { c.Branching.Semver = "loose" }, "branching.semver"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	cfg.Branching.Semver = "loose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "log_level") || !strings.Contains(err.Error(), "branching.semver") {
		t.Errorf("expected both errors joined, got %v", err)
	}
}

func TestEnsurePaths(t *testing.T) {
	cfg := Default()
	cfg.Storage.Root = filepath.Join(t.TempDir(), "registry")
	cfg.Storage.Database = filepath.Join(cfg.Storage.Root, "db", "registry.db")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(cfg.Storage.Database)); err != nil || !info.IsDir() {
		t.Errorf("database directory not created: %v", err)
	}
}
