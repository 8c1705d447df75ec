// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/registry/lib/artifacttype"
	"github.com/bureau-foundation/registry/lib/clock"
	"github.com/bureau-foundation/registry/lib/compress"
	"github.com/bureau-foundation/registry/lib/contentstore"
	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/refresolve"
	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/sqlitepool"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

// Config holds the parameters for [Open].
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// PoolSize bounds concurrent connections. Zero uses the pool
	// default.
	PoolSize int

	// Compression is the codec for stored content blobs.
	Compression compress.Tag

	// CacheTTL and CacheCleanup configure the content read cache; see
	// contentstore.Config.
	CacheTTL     time.Duration
	CacheCleanup time.Duration

	// Semver selects automatic semver branch maintenance.
	Semver versiongraph.SemverMode

	// Types supplies canonicalizers and dereferencers. Defaults to
	// artifacttype.Default().
	Types *artifacttype.Registry

	// Clock defaults to clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Registry is an open registry database.
type Registry struct {
	pool     *sqlitepool.Pool
	handles  *handle.Manager
	contents *contentstore.Store
	graph    *versiongraph.Graph
	resolver *refresolve.Resolver
	types    *artifacttype.Registry
	clock    clock.Clock
	logger   *slog.Logger
}

// Open opens and migrates the database at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Registry, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("registry: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	types := cfg.Types
	if types == nil {
		types = artifacttype.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	pool, err := registrydb.Open(ctx, registrydb.Config{Path: cfg.Path, PoolSize: cfg.PoolSize, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	registry, err := assemble(pool, cfg, types, clk, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return registry, nil
}

func assemble(pool *sqlitepool.Pool, cfg Config, types *artifacttype.Registry, clk clock.Clock, logger *slog.Logger) (*Registry, error) {
	handles, err := handle.New(handle.Config{
		Pool:   pool,
		Logger: logger.With("component", "handle"),
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	resolver := refresolve.New(types, logger.With("component", "refresolve"))
	contents, err := contentstore.New(contentstore.Config{
		Handles:      handles,
		Types:        types,
		Resolver:     resolver,
		Compression:  cfg.Compression,
		CacheTTL:     cfg.CacheTTL,
		CacheCleanup: cfg.CacheCleanup,
		Logger:       logger.With("component", "contentstore"),
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	graph, err := versiongraph.New(versiongraph.Config{
		Handles: handles,
		Clock:   clk,
		Semver:  cfg.Semver,
		Logger:  logger.With("component", "versiongraph"),
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return &Registry{
		pool:     pool,
		handles:  handles,
		contents: contents,
		graph:    graph,
		resolver: resolver,
		types:    types,
		clock:    clk,
		logger:   logger,
	}, nil
}

// Close closes the database.
func (r *Registry) Close() error { return r.pool.Close() }

// Handles returns the transaction scope manager.
func (r *Registry) Handles() *handle.Manager { return r.handles }

// Contents returns the content store.
func (r *Registry) Contents() *contentstore.Store { return r.contents }

// Graph returns the version graph.
func (r *Registry) Graph() *versiongraph.Graph { return r.graph }

// Resolver returns the reference resolver.
func (r *Registry) Resolver() *refresolve.Resolver { return r.resolver }

// Types returns the artifact type registry.
func (r *Registry) Types() *artifacttype.Registry { return r.types }

// Clock returns the registry's time source.
func (r *Registry) Clock() clock.Clock { return r.clock }

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger { return r.logger }
