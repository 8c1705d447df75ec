// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/compress"
	"github.com/bureau-foundation/registry/lib/config"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registry"
	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

// registryParams is embedded by every command that opens the database.
type registryParams struct {
	ConfigPath string `flag:"config" desc:"registry configuration file (default: $REGISTRY_CONFIG)"`
	Verbose    bool   `flag:"verbose,v" desc:"log at debug level"`
}

// loadConfig reads and validates the configuration.
func (p *registryParams) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if p.ConfigPath != "" {
		cfg, err = config.LoadFile(p.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (p *registryParams) logger(cfg *config.Config) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, cli.Validation("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	if p.Verbose {
		level = slog.LevelDebug
	}
	return cli.NewCommandLogger(level), nil
}

// open loads the configuration and opens the registry it names. The
// caller closes the returned registry.
func (p *registryParams) open(ctx context.Context) (*registry.Registry, *config.Config, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := p.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	compression, err := compress.ParseTag(cfg.Storage.Compression)
	if err != nil {
		return nil, nil, cli.Validation("storage.compression: %w", err)
	}
	semver, err := versiongraph.ParseSemverMode(cfg.Branching.Semver)
	if err != nil {
		return nil, nil, cli.Validation("branching.semver: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, nil, err
	}

	reg, err := registry.Open(ctx, registry.Config{
		Path:         cfg.DatabasePath(),
		PoolSize:     cfg.Storage.PoolSize,
		Compression:  compression,
		CacheTTL:     cfg.Storage.CacheTTL,
		CacheCleanup: cfg.Storage.CacheCleanup,
		Semver:       semver,
		Logger:       logger.With("environment", string(cfg.Environment)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening registry %s: %w", cfg.DatabasePath(), err)
	}
	return reg, cfg, nil
}

// parseGA validates group and artifact arguments.
func parseGA(groupID, artifactID string) (model.GA, error) {
	ga, err := model.NewGA(groupID, artifactID)
	if err != nil {
		return model.GA{}, cli.Validation("%w", err)
	}
	return ga, nil
}

func parseGAV(groupID, artifactID, version string) (model.GAV, error) {
	gav, err := model.NewGAV(groupID, artifactID, version)
	if err != nil {
		return model.GAV{}, cli.Validation("%w", err)
	}
	return gav, nil
}

// checkLabels rejects labels with an empty key, which the flag parser
// accepts from "=value".
func checkLabels(labels map[string]string) error {
	for key, value := range labels {
		if key == "" {
			return cli.Validation("label %q has an empty key", "="+value)
		}
	}
	return nil
}

// parseReferences turns group:artifact:version:name strings into
// references. The name is everything after the third colon.
func parseReferences(raw []string) ([]model.ArtifactReference, error) {
	references := make([]model.ArtifactReference, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) != 4 || parts[1] == "" || parts[3] == "" {
			return nil, cli.Validation("reference %q must be group:artifact:version:name", entry)
		}
		references = append(references, model.ArtifactReference{
			GroupID:    parts[0],
			ArtifactID: parts[1],
			Version:    parts[2],
			Name:       parts[3],
		})
	}
	return references, nil
}

func parseBranches(raw []string) ([]model.BranchID, error) {
	branches := make([]model.BranchID, 0, len(raw))
	for _, entry := range raw {
		branch, err := model.ParseBranchID(entry)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		branches = append(branches, branch)
	}
	return branches, nil
}

// Stdin is read by commands taking "-" as input. Tests replace it.
var Stdin io.Reader = os.Stdin

// readInput reads a file, or [Stdin] for "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(Stdin)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cli.NotFound("%s does not exist", path)
	}
	return data, err
}

func isNotFound(err error) bool {
	return errors.Is(err, registryerr.ErrNotFound)
}
