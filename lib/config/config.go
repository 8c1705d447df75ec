// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "REGISTRY_CONFIG"

// Config is the configuration of the registry binary.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Storage configures the database and content blobs.
	Storage StorageConfig `yaml:"storage"`

	// Import configures identifier handling for archive imports.
	Import ImportConfig `yaml:"import"`

	// Branching configures automatic branch maintenance.
	Branching BranchingConfig `yaml:"branching"`

	// Archive configures archive encryption keys.
	Archive ArchiveConfig `yaml:"archive"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	LogLevel  string           `yaml:"log_level,omitempty"`
	Storage   *StorageConfig   `yaml:"storage,omitempty"`
	Import    *ImportConfig    `yaml:"import,omitempty"`
	Branching *BranchingConfig `yaml:"branching,omitempty"`
	Archive   *ArchiveConfig   `yaml:"archive,omitempty"`
}

// StorageConfig configures the database.
type StorageConfig struct {
	// Root is the base directory for registry data. Available to other
	// paths as ${REGISTRY_ROOT}.
	Root string `yaml:"root"`

	// Database is the SQLite file. Empty means registry.db under Root.
	Database string `yaml:"database"`

	// PoolSize bounds concurrent connections. Zero uses the pool
	// default.
	PoolSize int `yaml:"pool_size"`

	// Compression is the codec for stored content: none, lz4, zstd,
	// or auto.
	// Default: auto
	Compression string `yaml:"compression"`

	// CacheTTL is how long content stays in the read cache. Negative
	// disables the cache.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheCleanup is the interval between cache sweeps.
	// Default: 10m
	CacheCleanup time.Duration `yaml:"cache_cleanup"`
}

// ImportConfig configures archive imports.
type ImportConfig struct {
	// PreserveGlobalID keeps archived version global ids.
	PreserveGlobalID bool `yaml:"preserve_global_id"`

	// PreserveContentID keeps archived content ids.
	PreserveContentID bool `yaml:"preserve_content_id"`

	// ReportDangling prints entities dropped for unresolved
	// dependencies after an import. They are always logged.
	ReportDangling bool `yaml:"report_dangling"`
}

// BranchingConfig configures automatic branches.
type BranchingConfig struct {
	// Semver is disabled, coerce, or strict.
	// Default: disabled
	Semver string `yaml:"semver"`
}

// ArchiveConfig configures archive encryption.
type ArchiveConfig struct {
	// RecipientsFile lists age recipients, one per line. When set,
	// exports are encrypted to every recipient.
	RecipientsFile string `yaml:"recipients_file"`

	// IdentityFile holds the age identities used to decrypt imports.
	IdentityFile string `yaml:"identity_file"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "bureau-registry")

	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Storage: StorageConfig{
			Root:         defaultRoot,
			Compression:  "auto",
			CacheTTL:     5 * time.Minute,
			CacheCleanup: 10 * time.Minute,
		},
		Branching: BranchingConfig{
			Semver: "disabled",
		},
	}
}

// Load loads configuration from the file named by REGISTRY_CONFIG.
//
// There are no fallbacks or defaults - if REGISTRY_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your registry.yaml config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is
// ${VAR} in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: identifiers survive migration between
		// instances and semver ids are enforced.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Import: &ImportConfig{
					PreserveGlobalID:  true,
					PreserveContentID: true,
					ReportDangling:    true,
				},
				Branching: &BranchingConfig{Semver: "strict"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}

	if overrides.Storage != nil {
		if overrides.Storage.Root != "" {
			c.Storage.Root = overrides.Storage.Root
		}
		if overrides.Storage.Database != "" {
			c.Storage.Database = overrides.Storage.Database
		}
		if overrides.Storage.PoolSize != 0 {
			c.Storage.PoolSize = overrides.Storage.PoolSize
		}
		if overrides.Storage.Compression != "" {
			c.Storage.Compression = overrides.Storage.Compression
		}
		if overrides.Storage.CacheTTL != 0 {
			c.Storage.CacheTTL = overrides.Storage.CacheTTL
		}
		if overrides.Storage.CacheCleanup != 0 {
			c.Storage.CacheCleanup = overrides.Storage.CacheCleanup
		}
	}

	// The import flags are bools, so an override section replaces all
	// three.
	if overrides.Import != nil {
		c.Import = *overrides.Import
	}

	if overrides.Branching != nil && overrides.Branching.Semver != "" {
		c.Branching.Semver = overrides.Branching.Semver
	}

	if overrides.Archive != nil {
		if overrides.Archive.RecipientsFile != "" {
			c.Archive.RecipientsFile = overrides.Archive.RecipientsFile
		}
		if overrides.Archive.IdentityFile != "" {
			c.Archive.IdentityFile = overrides.Archive.IdentityFile
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"REGISTRY_ROOT": c.Storage.Root,
		"HOME":          os.Getenv("HOME"),
	}

	c.Storage.Root = expandVars(c.Storage.Root, vars)
	vars["REGISTRY_ROOT"] = c.Storage.Root // Update for dependent paths.

	c.Storage.Database = expandVars(c.Storage.Database, vars)
	c.Archive.RecipientsFile = expandVars(c.Archive.RecipientsFile, vars)
	c.Archive.IdentityFile = expandVars(c.Archive.IdentityFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	compressions = []string{"none", "lz4", "zstd", "auto"}
	semverModes  = []string{"disabled", "coerce", "strict"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}

	if c.Storage.Database == "" && c.Storage.Root == "" {
		errs = append(errs, fmt.Errorf("storage.root or storage.database is required"))
	}

	if c.Storage.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("storage.pool_size must not be negative"))
	}

	if !slices.Contains(compressions, c.Storage.Compression) {
		errs = append(errs, fmt.Errorf("storage.compression must be one of: %v", compressions))
	}

	if c.Storage.CacheTTL > 0 && c.Storage.CacheCleanup < 0 {
		errs = append(errs, fmt.Errorf("storage.cache_cleanup must not be negative"))
	}

	if !slices.Contains(semverModes, c.Branching.Semver) {
		errs = append(errs, fmt.Errorf("branching.semver must be one of: %v", semverModes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DatabasePath returns the SQLite file to open.
func (c *Config) DatabasePath() string {
	if c.Storage.Database != "" {
		return c.Storage.Database
	}
	return filepath.Join(c.Storage.Root, "registry.db")
}

// EnsurePaths creates the directories holding the database.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Storage.Root, filepath.Dir(c.DatabasePath())} {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
