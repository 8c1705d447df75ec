// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/clock"
	"github.com/bureau-foundation/registry/lib/codec"
	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Config holds the dependencies of a Graph.
type Config struct {
	// Handles scopes every query. Required.
	Handles *handle.Manager

	// Clock stamps created and modified times. Defaults to clock.Real().
	Clock clock.Clock

	// Semver selects automatic semver branch maintenance.
	Semver SemverMode

	Logger *slog.Logger
}

// Graph is the artifact graph store.
type Graph struct {
	handles *handle.Manager
	clock   clock.Clock
	semver  SemverMode
	logger  *slog.Logger
}

// New creates a Graph.
func New(cfg Config) (*Graph, error) {
	if cfg.Handles == nil {
		return nil, fmt.Errorf("versiongraph: Handles is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Graph{handles: cfg.Handles, clock: clk, semver: cfg.Semver, logger: logger}, nil
}

// Handles returns the manager the graph runs its scopes on.
func (g *Graph) Handles() *handle.Manager { return g.handles }

func (g *Graph) now() int64 { return g.clock.Now().UnixMilli() }

func fromMillis(millis int64) time.Time { return time.UnixMilli(millis).UTC() }

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func encodeLabels(labels map[string]string) ([]byte, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	encoded, err := codec.Marshal(labels)
	if err != nil {
		return nil, registryerr.Storage("encode labels", err)
	}
	return encoded, nil
}

func decodeLabels(stmt *sqlite.Stmt, col int) (map[string]string, error) {
	if stmt.ColumnIsNull(col) || stmt.ColumnLen(col) == 0 {
		return nil, nil
	}
	encoded := make([]byte, stmt.ColumnLen(col))
	stmt.ColumnBytes(col, encoded)
	var labels map[string]string
	if err := codec.Unmarshal(encoded, &labels); err != nil {
		return nil, &registryerr.IntegrityError{Err: fmt.Errorf("labels: %w", err)}
	}
	return labels, nil
}

// exists runs a counting query and reports whether it matched.
func exists(h *handle.Handle, query string, args ...any) (bool, error) {
	found := false
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(*sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	return found, err
}

func gaArgs(ga model.GA) []any {
	return []any{ga.GroupID.RawValue(), ga.ArtifactID}
}

func gavArgs(gav model.GAV) []any {
	return []any{gav.GroupID.RawValue(), gav.ArtifactID, gav.Version}
}

func artifactExists(h *handle.Handle, ga model.GA) (bool, error) {
	return exists(h, `SELECT 1 FROM artifacts WHERE group_id = ? AND artifact_id = ?`, gaArgs(ga)...)
}

func requireArtifact(h *handle.Handle, ga model.GA) error {
	found, err := artifactExists(h, ga)
	if err != nil {
		return err
	}
	if !found {
		return &registryerr.ArtifactNotFoundError{GA: ga}
	}
	return nil
}

func parseGroup(raw string) model.GroupID {
	group, err := model.ParseGroupID(raw)
	if err != nil {
		return model.DefaultGroup()
	}
	return group
}
