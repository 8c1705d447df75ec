// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"context"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Artifact is a versioned document identity within a group.
type Artifact struct {
	GA           model.GA
	ArtifactType string
	CreatedBy    string
	CreatedOn    time.Time
}

// NewArtifact describes an artifact to create.
type NewArtifact struct {
	GA           model.GA
	ArtifactType string
	CreatedBy    string
}

const artifactColumns = `group_id, artifact_id, artifact_type, created_by, created_on`

func scanArtifact(stmt *sqlite.Stmt) Artifact {
	return Artifact{
		GA: model.GA{
			GroupID:    parseGroup(stmt.ColumnText(0)),
			ArtifactID: stmt.ColumnText(1),
		},
		ArtifactType: stmt.ColumnText(2),
		CreatedBy:    stmt.ColumnText(3),
		CreatedOn:    fromMillis(stmt.ColumnInt64(4)),
	}
}

// CreateArtifact creates an artifact, creating its group if needed.
// When first is non-nil it becomes the artifact's first version in
// the same transaction; its GAV is taken from artifact.GA and
// first.GAV.Version.
func (g *Graph) CreateArtifact(ctx context.Context, artifact NewArtifact, first *NewVersion) (Artifact, *Version, error) {
	type created struct {
		artifact Artifact
		version  *Version
	}
	result, err := handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (created, error) {
		found, err := artifactExists(h, artifact.GA)
		if err != nil {
			return created{}, err
		}
		if found {
			return created{}, &registryerr.ArtifactAlreadyExistsError{GA: artifact.GA}
		}
		stored, err := g.insertArtifact(h, artifact, g.now())
		if err != nil {
			return created{}, err
		}
		if first == nil {
			return created{artifact: stored}, nil
		}
		version := *first
		version.GAV = artifact.GA.WithVersion(first.GAV.Version)
		if version.CreatedBy == "" {
			version.CreatedBy = artifact.CreatedBy
		}
		inserted, err := g.createVersion(h, version)
		if err != nil {
			return created{}, err
		}
		return created{artifact: stored, version: &inserted}, nil
	})
	if err != nil {
		return Artifact{}, nil, err
	}
	g.logger.Info("created artifact",
		"group_id", artifact.GA.GroupID.String(),
		"artifact_id", artifact.GA.ArtifactID,
	)
	return result.artifact, result.version, nil
}

func (g *Graph) insertArtifact(h *handle.Handle, artifact NewArtifact, createdOn int64) (Artifact, error) {
	if err := model.ValidateArtifactID(artifact.GA.ArtifactID); err != nil {
		return Artifact{}, &registryerr.InvalidError{Err: err}
	}
	if err := g.ensureGroup(h, artifact.GA.GroupID, artifact.CreatedBy); err != nil {
		return Artifact{}, err
	}
	err := h.Execute(`INSERT INTO artifacts (`+artifactColumns+`) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			artifact.GA.GroupID.RawValue(), artifact.GA.ArtifactID,
			artifact.ArtifactType, artifact.CreatedBy, createdOn,
		}})
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		GA:           artifact.GA,
		ArtifactType: artifact.ArtifactType,
		CreatedBy:    artifact.CreatedBy,
		CreatedOn:    fromMillis(createdOn),
	}, nil
}

// GetArtifact returns the artifact at ga.
func (g *Graph) GetArtifact(ctx context.Context, ga model.GA) (Artifact, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Artifact, error) {
		artifacts, err := queryArtifacts(h, `SELECT `+artifactColumns+` FROM artifacts WHERE group_id = ? AND artifact_id = ?`, gaArgs(ga)...)
		if err != nil {
			return Artifact{}, err
		}
		if len(artifacts) == 0 {
			return Artifact{}, &registryerr.ArtifactNotFoundError{GA: ga}
		}
		return artifacts[0], nil
	})
}

// ListArtifacts returns the artifacts of a group ordered by id.
func (g *Graph) ListArtifacts(ctx context.Context, groupID model.GroupID) ([]Artifact, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Artifact, error) {
		return queryArtifacts(h, `SELECT `+artifactColumns+` FROM artifacts WHERE group_id = ? ORDER BY artifact_id`, groupID.RawValue())
	})
}

// AllArtifacts returns every artifact ordered by group and id.
func (g *Graph) AllArtifacts(ctx context.Context) ([]Artifact, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Artifact, error) {
		return queryArtifacts(h, `SELECT `+artifactColumns+` FROM artifacts ORDER BY group_id, artifact_id`)
	})
}

// DeleteArtifact removes an artifact with all of its versions,
// branches, rules, and comments.
func (g *Graph) DeleteArtifact(ctx context.Context, ga model.GA) error {
	err := g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := requireArtifact(h, ga); err != nil {
			return err
		}
		return deleteArtifactRows(h, ga)
	})
	if err != nil {
		return err
	}
	g.logger.Info("deleted artifact", "group_id", ga.GroupID.String(), "artifact_id", ga.ArtifactID)
	return nil
}

func deleteArtifactRows(h *handle.Handle, ga model.GA) error {
	for _, query := range []string{
		`DELETE FROM comments WHERE global_id IN (SELECT global_id FROM versions WHERE group_id = ? AND artifact_id = ?)`,
		`DELETE FROM versions WHERE group_id = ? AND artifact_id = ?`,
		`DELETE FROM branch_versions WHERE group_id = ? AND artifact_id = ?`,
		`DELETE FROM branches WHERE group_id = ? AND artifact_id = ?`,
		`DELETE FROM rules WHERE group_id = ? AND artifact_id = ?`,
		`DELETE FROM artifacts WHERE group_id = ? AND artifact_id = ?`,
	} {
		if err := h.Execute(query, &sqlitex.ExecOptions{Args: gaArgs(ga)}); err != nil {
			return err
		}
	}
	return nil
}

func queryArtifacts(h *handle.Handle, query string, args ...any) ([]Artifact, error) {
	var artifacts []Artifact
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			artifacts = append(artifacts, scanArtifact(stmt))
			return nil
		},
	})
	return artifacts, err
}
