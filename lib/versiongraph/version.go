// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Version is one immutable revision of an artifact.
type Version struct {
	GlobalID     int64
	GAV          model.GAV
	VersionOrder int64
	ContentID    int64
	State        model.VersionState
	Name         string
	Description  string
	CreatedBy    string
	CreatedOn    time.Time
	ModifiedBy   string
	ModifiedOn   time.Time
	Labels       map[string]string
}

// NewVersion describes a version to add to an existing artifact.
type NewVersion struct {
	// GAV names the version. An empty Version is assigned the
	// artifact's next version order as a decimal string.
	GAV model.GAV

	// ContentID is the stored content of the version.
	ContentID int64

	// State defaults to ENABLED.
	State model.VersionState

	Name        string
	Description string
	CreatedBy   string
	Labels      map[string]string

	// Branches lists custom branches the version is appended to in
	// addition to LATEST.
	Branches []model.BranchID
}

// EditableMetadata holds the mutable fields of a version. Nil fields
// are left unchanged.
type EditableMetadata struct {
	Name        *string
	Description *string
	Labels      map[string]string
	ModifiedBy  string
}

const versionColumns = `global_id, group_id, artifact_id, version, version_order, state, name, description, created_by, created_on, modified_by, modified_on, labels, content_id`

func scanVersion(stmt *sqlite.Stmt) (Version, error) {
	labels, err := decodeLabels(stmt, 12)
	if err != nil {
		return Version{}, err
	}
	return Version{
		GlobalID: stmt.ColumnInt64(0),
		GAV: model.GAV{
			GroupID:    parseGroup(stmt.ColumnText(1)),
			ArtifactID: stmt.ColumnText(2),
			Version:    stmt.ColumnText(3),
		},
		VersionOrder: stmt.ColumnInt64(4),
		State:        model.VersionState(stmt.ColumnText(5)),
		Name:         stmt.ColumnText(6),
		Description:  stmt.ColumnText(7),
		CreatedBy:    stmt.ColumnText(8),
		CreatedOn:    fromMillis(stmt.ColumnInt64(9)),
		ModifiedBy:   stmt.ColumnText(10),
		ModifiedOn:   fromMillis(stmt.ColumnInt64(11)),
		Labels:       labels,
		ContentID:    stmt.ColumnInt64(13),
	}, nil
}

// CreateVersion adds a version to an existing artifact and appends it
// to LATEST, to any requested branches, and to its semver branches.
func (g *Graph) CreateVersion(ctx context.Context, version NewVersion) (Version, error) {
	created, err := handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Version, error) {
		if err := requireArtifact(h, version.GAV.GA()); err != nil {
			return Version{}, err
		}
		return g.createVersion(h, version)
	})
	if err != nil {
		return Version{}, err
	}
	g.logger.Info("created version",
		"group_id", created.GAV.GroupID.String(),
		"artifact_id", created.GAV.ArtifactID,
		"version", created.GAV.Version,
		"global_id", created.GlobalID,
		"content_id", created.ContentID,
	)
	return created, nil
}

func (g *Graph) createVersion(h *handle.Handle, version NewVersion) (Version, error) {
	ga := version.GAV.GA()
	order, err := nextVersionOrder(h, ga)
	if err != nil {
		return Version{}, err
	}
	if version.GAV.Version == "" {
		version.GAV.Version = strconv.FormatInt(order, 10)
	}
	if err := model.ValidateVersion(version.GAV.Version); err != nil {
		return Version{}, &registryerr.InvalidError{Err: err}
	}
	semverBranchIDs, ok := semverBranches(g.semver, version.GAV.Version)
	if !ok && g.semver == SemverStrict {
		return Version{}, registryerr.Invalid("version %q is not a semantic version", version.GAV.Version)
	}

	found, err := versionExists(h, version.GAV)
	if err != nil {
		return Version{}, err
	}
	if found {
		return Version{}, &registryerr.VersionAlreadyExistsError{GAV: version.GAV}
	}
	globalID, err := registrydb.NextID(h.Conn(), registrydb.GlobalIDs)
	if err != nil {
		return Version{}, registryerr.Storage("allocate global id", err)
	}

	now := fromMillis(g.now())
	stored := Version{
		GlobalID:     globalID,
		GAV:          version.GAV,
		VersionOrder: order,
		ContentID:    version.ContentID,
		State:        version.State,
		Name:         version.Name,
		Description:  version.Description,
		CreatedBy:    version.CreatedBy,
		CreatedOn:    now,
		ModifiedBy:   version.CreatedBy,
		ModifiedOn:   now,
		Labels:       version.Labels,
	}
	if stored.State == "" {
		stored.State = model.StateEnabled
	}
	if err := insertVersion(h, stored); err != nil {
		return Version{}, err
	}

	if err := g.appendToBranch(h, version.GAV, model.Latest, true); err != nil {
		return Version{}, err
	}
	for _, branchID := range version.Branches {
		if branchID.IsLatest() {
			continue
		}
		if err := g.appendToBranch(h, version.GAV, branchID, false); err != nil {
			return Version{}, err
		}
	}
	for _, branchID := range semverBranchIDs {
		if err := g.appendToBranch(h, version.GAV, branchID, true); err != nil {
			return Version{}, err
		}
	}
	return stored, nil
}

// ImportVersion stores an archived version. The artifact and group are
// created when missing. The artifact's creator and creation time follow
// its lowest-ordered version, whatever order versions arrive in. The
// version is not appended to any branch; branch membership arrives
// separately. With preserveGlobalID the archived global id is kept,
// otherwise a fresh one is allocated. A zero VersionOrder takes the
// artifact's next order.
func (g *Graph) ImportVersion(ctx context.Context, version Version, artifactType string, preserveGlobalID bool) (Version, error) {
	return handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Version, error) {
		if err := model.ValidateVersion(version.GAV.Version); err != nil {
			return Version{}, &registryerr.InvalidError{Err: err}
		}
		if version.CreatedOn.IsZero() {
			version.CreatedOn = fromMillis(g.now())
		}
		ga := version.GAV.GA()
		found, err := artifactExists(h, ga)
		if err != nil {
			return Version{}, err
		}
		if !found {
			artifact := NewArtifact{GA: ga, ArtifactType: artifactType, CreatedBy: version.CreatedBy}
			if _, err := g.insertArtifact(h, artifact, toMillis(version.CreatedOn)); err != nil {
				return Version{}, err
			}
		}
		if found, err := versionExists(h, version.GAV); err != nil || found {
			if err == nil {
				err = &registryerr.VersionAlreadyExistsError{GAV: version.GAV}
			}
			return Version{}, err
		}

		if preserveGlobalID && version.GlobalID > 0 {
			taken, err := exists(h, `SELECT 1 FROM versions WHERE global_id = ?`, version.GlobalID)
			if err != nil {
				return Version{}, err
			}
			if taken {
				return Version{}, &registryerr.VersionAlreadyExistsError{GAV: version.GAV, GlobalID: version.GlobalID}
			}
		} else {
			if version.GlobalID, err = registrydb.NextID(h.Conn(), registrydb.GlobalIDs); err != nil {
				return Version{}, registryerr.Storage("allocate global id", err)
			}
		}

		if version.VersionOrder <= 0 {
			if version.VersionOrder, err = nextVersionOrder(h, ga); err != nil {
				return Version{}, err
			}
		} else {
			err := h.Execute(`
				UPDATE artifacts SET next_version_order = MAX(next_version_order, ? + 1)
				WHERE group_id = ? AND artifact_id = ?`,
				&sqlitex.ExecOptions{Args: []any{version.VersionOrder, ga.GroupID.RawValue(), ga.ArtifactID}})
			if err != nil {
				return Version{}, err
			}
		}
		if version.State == "" {
			version.State = model.StateEnabled
		}
		if version.ModifiedOn.IsZero() {
			version.ModifiedOn = version.CreatedOn
		}
		if err := insertVersion(h, version); err != nil {
			return Version{}, err
		}
		if found {
			if err := adoptEarliestVersion(h, version); err != nil {
				return Version{}, err
			}
		}
		return version, nil
	})
}

// adoptEarliestVersion gives the artifact version's creator and
// creation time when version now has the artifact's lowest order.
func adoptEarliestVersion(h *handle.Handle, version Version) error {
	ga := version.GAV.GA()
	return h.Execute(`
		UPDATE artifacts SET created_by = ?, created_on = ?
		WHERE group_id = ? AND artifact_id = ?
			AND ? < (SELECT MIN(version_order) FROM versions
				WHERE group_id = ? AND artifact_id = ? AND global_id != ?)`,
		&sqlitex.ExecOptions{Args: []any{
			version.CreatedBy, toMillis(version.CreatedOn),
			ga.GroupID.RawValue(), ga.ArtifactID,
			version.VersionOrder,
			ga.GroupID.RawValue(), ga.ArtifactID, version.GlobalID,
		}})
}

func insertVersion(h *handle.Handle, version Version) error {
	labels, err := encodeLabels(version.Labels)
	if err != nil {
		return err
	}
	return h.Execute(`INSERT INTO versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			version.GlobalID, version.GAV.GroupID.RawValue(), version.GAV.ArtifactID, version.GAV.Version,
			version.VersionOrder, string(version.State), version.Name, version.Description,
			version.CreatedBy, toMillis(version.CreatedOn), version.ModifiedBy, toMillis(version.ModifiedOn),
			labels, version.ContentID,
		}})
}

func nextVersionOrder(h *handle.Handle, ga model.GA) (int64, error) {
	var order int64
	err := h.Execute(`
		UPDATE artifacts SET next_version_order = next_version_order + 1
		WHERE group_id = ? AND artifact_id = ?
		RETURNING next_version_order - 1`,
		&sqlitex.ExecOptions{
			Args: gaArgs(ga),
			ResultFunc: func(stmt *sqlite.Stmt) error {
				order = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, err
	}
	if order == 0 {
		return 0, &registryerr.ArtifactNotFoundError{GA: ga}
	}
	return order, nil
}

func versionExists(h *handle.Handle, gav model.GAV) (bool, error) {
	return exists(h, `SELECT 1 FROM versions WHERE group_id = ? AND artifact_id = ? AND version = ?`, gavArgs(gav)...)
}

// getVersion distinguishes a missing artifact from a missing version.
func getVersion(h *handle.Handle, gav model.GAV) (Version, error) {
	versions, err := queryVersions(h, `SELECT `+versionColumns+` FROM versions WHERE group_id = ? AND artifact_id = ? AND version = ?`, gavArgs(gav)...)
	if err != nil {
		return Version{}, err
	}
	if len(versions) == 1 {
		return versions[0], nil
	}
	if err := requireArtifact(h, gav.GA()); err != nil {
		return Version{}, err
	}
	return Version{}, &registryerr.VersionNotFoundError{GAV: gav}
}

// GetVersion returns the version at gav.
func (g *Graph) GetVersion(ctx context.Context, gav model.GAV) (Version, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Version, error) {
		return getVersion(h, gav)
	})
}

// GetVersionByGlobalID returns the version with globalID.
func (g *Graph) GetVersionByGlobalID(ctx context.Context, globalID int64) (Version, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Version, error) {
		versions, err := queryVersions(h, `SELECT `+versionColumns+` FROM versions WHERE global_id = ?`, globalID)
		if err != nil {
			return Version{}, err
		}
		if len(versions) == 0 {
			return Version{}, &registryerr.VersionNotFoundError{GlobalID: globalID}
		}
		return versions[0], nil
	})
}

// ListVersions returns the versions of an artifact in creation order.
func (g *Graph) ListVersions(ctx context.Context, ga model.GA) ([]Version, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Version, error) {
		if err := requireArtifact(h, ga); err != nil {
			return nil, err
		}
		return queryVersions(h, `SELECT `+versionColumns+` FROM versions WHERE group_id = ? AND artifact_id = ? ORDER BY version_order`, gaArgs(ga)...)
	})
}

// VersionsByContent returns the versions whose content is contentID,
// ordered by global id.
func (g *Graph) VersionsByContent(ctx context.Context, contentID int64) ([]Version, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Version, error) {
		return queryVersions(h, `SELECT `+versionColumns+` FROM versions WHERE content_id = ? ORDER BY global_id`, contentID)
	})
}

// UpdateVersionState sets the state of a version. Any state may follow
// any other.
func (g *Graph) UpdateVersionState(ctx context.Context, gav model.GAV, state model.VersionState, modifiedBy string) error {
	if _, err := model.ParseVersionState(string(state)); err != nil {
		return &registryerr.InvalidError{Err: err}
	}
	err := g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		current, err := getVersion(h, gav)
		if err != nil {
			return err
		}
		return h.Execute(`UPDATE versions SET state = ?, modified_by = ?, modified_on = ? WHERE global_id = ?`,
			&sqlitex.ExecOptions{Args: []any{string(state), modifiedBy, g.now(), current.GlobalID}})
	})
	if err != nil {
		return err
	}
	g.logger.Info("updated version state",
		"group_id", gav.GroupID.String(),
		"artifact_id", gav.ArtifactID,
		"version", gav.Version,
		"state", string(state),
	)
	return nil
}

// UpdateVersionMetadata replaces the non-nil fields of metadata.
func (g *Graph) UpdateVersionMetadata(ctx context.Context, gav model.GAV, metadata EditableMetadata) (Version, error) {
	return handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Version, error) {
		current, err := getVersion(h, gav)
		if err != nil {
			return Version{}, err
		}
		if metadata.Name != nil {
			current.Name = *metadata.Name
		}
		if metadata.Description != nil {
			current.Description = *metadata.Description
		}
		if metadata.Labels != nil {
			current.Labels = metadata.Labels
		}
		current.ModifiedBy = metadata.ModifiedBy
		current.ModifiedOn = fromMillis(g.now())
		labels, err := encodeLabels(current.Labels)
		if err != nil {
			return Version{}, err
		}
		err = h.Execute(`
			UPDATE versions SET name = ?, description = ?, labels = ?, modified_by = ?, modified_on = ?
			WHERE global_id = ?`,
			&sqlitex.ExecOptions{Args: []any{
				current.Name, current.Description, labels, current.ModifiedBy,
				toMillis(current.ModifiedOn), current.GlobalID,
			}})
		return current, err
	})
}

// DeleteVersion removes a version, its comments, and its branch
// memberships. Removing the last version of an artifact removes the
// artifact.
func (g *Graph) DeleteVersion(ctx context.Context, gav model.GAV) error {
	var artifactRemoved bool
	err := g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		current, err := getVersion(h, gav)
		if err != nil {
			return err
		}
		for _, statement := range []struct {
			query string
			args  []any
		}{
			{`DELETE FROM comments WHERE global_id = ?`, []any{current.GlobalID}},
			{`DELETE FROM branch_versions WHERE group_id = ? AND artifact_id = ? AND version = ?`, gavArgs(gav)},
			{`DELETE FROM versions WHERE global_id = ?`, []any{current.GlobalID}},
		} {
			if err := h.Execute(statement.query, &sqlitex.ExecOptions{Args: statement.args}); err != nil {
				return err
			}
		}
		remaining, err := exists(h, `SELECT 1 FROM versions WHERE group_id = ? AND artifact_id = ? LIMIT 1`, gaArgs(gav.GA())...)
		if err != nil {
			return err
		}
		if !remaining {
			artifactRemoved = true
			return deleteArtifactRows(h, gav.GA())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("versiongraph: delete %s: %w", gav, err)
	}
	g.logger.Info("deleted version",
		"group_id", gav.GroupID.String(),
		"artifact_id", gav.ArtifactID,
		"version", gav.Version,
		"artifact_removed", artifactRemoved,
	)
	return nil
}

func queryVersions(h *handle.Handle, query string, args ...any) ([]Version, error) {
	var versions []Version
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version, err := scanVersion(stmt)
			if err != nil {
				return err
			}
			versions = append(versions, version)
			return nil
		},
	})
	return versions, err
}
