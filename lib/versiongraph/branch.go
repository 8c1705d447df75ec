// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Branch is a named, ordered list of an artifact's versions.
type Branch struct {
	GA            model.GA
	BranchID      model.BranchID
	Description   string
	SystemDefined bool
	CreatedOn     time.Time
	ModifiedOn    time.Time
}

// BranchMember is one position in a branch.
type BranchMember struct {
	Version     string
	BranchOrder int64
	State       model.VersionState
}

const branchColumns = `group_id, artifact_id, branch_id, description, system_defined, created_on, modified_on`

func scanBranch(stmt *sqlite.Stmt) Branch {
	return Branch{
		GA: model.GA{
			GroupID:    parseGroup(stmt.ColumnText(0)),
			ArtifactID: stmt.ColumnText(1),
		},
		BranchID:      model.BranchID(stmt.ColumnText(2)),
		Description:   stmt.ColumnText(3),
		SystemDefined: stmt.ColumnInt(4) != 0,
		CreatedOn:     fromMillis(stmt.ColumnInt64(5)),
		ModifiedOn:    fromMillis(stmt.ColumnInt64(6)),
	}
}

func branchExists(h *handle.Handle, ga model.GA, branchID model.BranchID) (bool, error) {
	return exists(h, `SELECT 1 FROM branches WHERE group_id = ? AND artifact_id = ? AND branch_id = ?`,
		ga.GroupID.RawValue(), ga.ArtifactID, string(branchID))
}

func requireBranch(h *handle.Handle, ga model.GA, branchID model.BranchID) error {
	if err := requireArtifact(h, ga); err != nil {
		return err
	}
	found, err := branchExists(h, ga, branchID)
	if err != nil {
		return err
	}
	if !found {
		return &registryerr.BranchNotFoundError{GA: ga, BranchID: branchID}
	}
	return nil
}

// members returns the branch positions in append order. Members whose
// version no longer exists are omitted.
func members(h *handle.Handle, ga model.GA, branchID model.BranchID) ([]BranchMember, error) {
	var result []BranchMember
	err := h.Execute(`
		SELECT bv.version, bv.branch_order, v.state
		FROM branch_versions bv
		JOIN versions v ON v.group_id = bv.group_id AND v.artifact_id = bv.artifact_id AND v.version = bv.version
		WHERE bv.group_id = ? AND bv.artifact_id = ? AND bv.branch_id = ?
		ORDER BY bv.branch_order`,
		&sqlitex.ExecOptions{
			Args: []any{ga.GroupID.RawValue(), ga.ArtifactID, string(branchID)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				result = append(result, BranchMember{
					Version:     stmt.ColumnText(0),
					BranchOrder: stmt.ColumnInt64(1),
					State:       model.VersionState(stmt.ColumnText(2)),
				})
				return nil
			},
		})
	return result, err
}

// ensureBranch creates the branch row if absent and bumps its
// modification time otherwise.
func (g *Graph) ensureBranch(h *handle.Handle, ga model.GA, branchID model.BranchID, description string, systemDefined bool) error {
	now := g.now()
	return h.Execute(`
		INSERT INTO branches (`+branchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, artifact_id, branch_id) DO UPDATE SET modified_on = excluded.modified_on`,
		&sqlitex.ExecOptions{Args: []any{
			ga.GroupID.RawValue(), ga.ArtifactID, string(branchID), description, boolInt(systemDefined), now, now,
		}})
}

// appendToBranch adds gav at the end of a branch, creating the branch
// if needed.
func (g *Graph) appendToBranch(h *handle.Handle, gav model.GAV, branchID model.BranchID, systemDefined bool) error {
	ga := gav.GA()
	if err := g.ensureBranch(h, ga, branchID, "", systemDefined); err != nil {
		return err
	}
	return h.Execute(`
		INSERT INTO branch_versions (group_id, artifact_id, branch_id, branch_order, version)
		SELECT ?, ?, ?, COALESCE(MAX(branch_order), 0) + 1, ?
		FROM branch_versions WHERE group_id = ? AND artifact_id = ? AND branch_id = ?`,
		&sqlitex.ExecOptions{Args: []any{
			ga.GroupID.RawValue(), ga.ArtifactID, string(branchID), gav.Version,
			ga.GroupID.RawValue(), ga.ArtifactID, string(branchID),
		}})
}

// selectVisible applies behavior to an append-ordered member list.
// Under RetrieveSkipDisabledLatest trailing DISABLED members are
// dropped so the last remaining member is the leaf.
func selectVisible(list []BranchMember, behavior model.RetrievalBehavior) []BranchMember {
	if behavior != model.RetrieveSkipDisabledLatest {
		return list
	}
	end := len(list)
	for end > 0 && list[end-1].State == model.StateDisabled {
		end--
	}
	return list[:end]
}

// GetBranch returns branch metadata.
func (g *Graph) GetBranch(ctx context.Context, ga model.GA, branchID model.BranchID) (Branch, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Branch, error) {
		if err := requireBranch(h, ga, branchID); err != nil {
			return Branch{}, err
		}
		branches, err := queryBranches(h, `SELECT `+branchColumns+` FROM branches WHERE group_id = ? AND artifact_id = ? AND branch_id = ?`,
			ga.GroupID.RawValue(), ga.ArtifactID, string(branchID))
		if err != nil {
			return Branch{}, err
		}
		return branches[0], nil
	})
}

// ListBranches returns the branches of an artifact ordered by id.
func (g *Graph) ListBranches(ctx context.Context, ga model.GA) ([]Branch, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Branch, error) {
		if err := requireArtifact(h, ga); err != nil {
			return nil, err
		}
		return queryBranches(h, `SELECT `+branchColumns+` FROM branches WHERE group_id = ? AND artifact_id = ? ORDER BY branch_id`, gaArgs(ga)...)
	})
}

// GetBranchVersions returns the versions of a branch in append order.
// The last element is the leaf.
func (g *Graph) GetBranchVersions(ctx context.Context, ga model.GA, branchID model.BranchID, behavior model.RetrievalBehavior) ([]model.GAV, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]model.GAV, error) {
		if err := requireBranch(h, ga, branchID); err != nil {
			return nil, err
		}
		list, err := members(h, ga, branchID)
		if err != nil {
			return nil, err
		}
		visible := selectVisible(list, behavior)
		result := make([]model.GAV, len(visible))
		for i, member := range visible {
			result[i] = ga.WithVersion(member.Version)
		}
		return result, nil
	})
}

// GetBranchLeaf returns the leaf version of a branch. A branch with no
// eligible member has no leaf and yields a VersionNotFoundError.
func (g *Graph) GetBranchLeaf(ctx context.Context, ga model.GA, branchID model.BranchID, behavior model.RetrievalBehavior) (Version, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Version, error) {
		if err := requireBranch(h, ga, branchID); err != nil {
			return Version{}, err
		}
		list, err := members(h, ga, branchID)
		if err != nil {
			return Version{}, err
		}
		visible := selectVisible(list, behavior)
		if len(visible) == 0 {
			return Version{}, fmt.Errorf("branch %q of %s has no %s leaf: %w",
				branchID, ga, behavior, &registryerr.VersionNotFoundError{GAV: ga.WithVersion("")})
		}
		return getVersion(h, ga.WithVersion(visible[len(visible)-1].Version))
	})
}

// CreateOrUpdateBranch appends gav to a custom branch, creating the
// branch if it does not exist. Appending the current leaf again is a
// no-op. LATEST is maintained by the graph and cannot be appended to.
func (g *Graph) CreateOrUpdateBranch(ctx context.Context, gav model.GAV, branchID model.BranchID) error {
	if branchID.IsLatest() {
		return registryerr.NotAllowed("branch %q is maintained by the registry", branchID)
	}
	if _, err := model.ParseBranchID(string(branchID)); err != nil {
		return &registryerr.InvalidError{Err: err}
	}
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if _, err := getVersion(h, gav); err != nil {
			return err
		}
		list, err := members(h, gav.GA(), branchID)
		if err != nil {
			return err
		}
		if len(list) > 0 && list[len(list)-1].Version == gav.Version {
			return nil
		}
		return g.appendToBranch(h, gav, branchID, false)
	})
}

// AddVersionToBranch appends gav to an existing custom branch. Unlike
// CreateOrUpdateBranch it fails if the branch is missing or already
// contains the version.
func (g *Graph) AddVersionToBranch(ctx context.Context, gav model.GAV, branchID model.BranchID) error {
	if branchID.IsLatest() {
		return registryerr.NotAllowed("branch %q is maintained by the registry", branchID)
	}
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := requireBranch(h, gav.GA(), branchID); err != nil {
			return err
		}
		if _, err := getVersion(h, gav); err != nil {
			return err
		}
		list, err := members(h, gav.GA(), branchID)
		if err != nil {
			return err
		}
		for _, member := range list {
			if member.Version == gav.Version {
				return &registryerr.BranchVersionAlreadyExistsError{GAV: gav, BranchID: branchID}
			}
		}
		return g.appendToBranch(h, gav, branchID, false)
	})
}

// ReplaceBranchVersions sets the full member list of a custom branch.
func (g *Graph) ReplaceBranchVersions(ctx context.Context, ga model.GA, branchID model.BranchID, versions []string) error {
	if branchID.IsLatest() {
		return registryerr.NotAllowed("branch %q is maintained by the registry", branchID)
	}
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := requireBranch(h, ga, branchID); err != nil {
			return err
		}
		for _, version := range versions {
			if _, err := getVersion(h, ga.WithVersion(version)); err != nil {
				return err
			}
		}
		err := h.Execute(`DELETE FROM branch_versions WHERE group_id = ? AND artifact_id = ? AND branch_id = ?`,
			&sqlitex.ExecOptions{Args: []any{ga.GroupID.RawValue(), ga.ArtifactID, string(branchID)}})
		if err != nil {
			return err
		}
		for _, version := range versions {
			if err := g.appendToBranch(h, ga.WithVersion(version), branchID, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBranch removes a custom branch. Versions are untouched. LATEST
// cannot be deleted.
func (g *Graph) DeleteBranch(ctx context.Context, ga model.GA, branchID model.BranchID) error {
	if branchID.IsLatest() {
		return registryerr.NotAllowed("branch %q cannot be deleted", branchID)
	}
	err := g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := requireBranch(h, ga, branchID); err != nil {
			return err
		}
		args := &sqlitex.ExecOptions{Args: []any{ga.GroupID.RawValue(), ga.ArtifactID, string(branchID)}}
		if err := h.Execute(`DELETE FROM branch_versions WHERE group_id = ? AND artifact_id = ? AND branch_id = ?`, args); err != nil {
			return err
		}
		return h.Execute(`DELETE FROM branches WHERE group_id = ? AND artifact_id = ? AND branch_id = ?`, args)
	})
	if err != nil {
		return err
	}
	g.logger.Info("deleted branch",
		"group_id", ga.GroupID.String(),
		"artifact_id", ga.ArtifactID,
		"branch_id", string(branchID),
	)
	return nil
}

// ImportedBranchVersion is one archived branch position.
type ImportedBranchVersion struct {
	GAV           model.GAV
	BranchID      model.BranchID
	BranchOrder   int64
	Description   string
	SystemDefined bool
}

// ImportBranchVersion places an archived version at its recorded
// position in a branch, creating the branch if needed. A zero
// BranchOrder appends. An occupied position yields a
// BranchVersionAlreadyExistsError.
func (g *Graph) ImportBranchVersion(ctx context.Context, entry ImportedBranchVersion) error {
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if _, err := getVersion(h, entry.GAV); err != nil {
			return err
		}
		ga := entry.GAV.GA()
		systemDefined := entry.SystemDefined || entry.BranchID.IsLatest()
		if entry.BranchOrder <= 0 {
			return g.appendToBranch(h, entry.GAV, entry.BranchID, systemDefined)
		}
		if err := g.ensureBranch(h, ga, entry.BranchID, entry.Description, systemDefined); err != nil {
			return err
		}
		err := h.Execute(`
			INSERT INTO branch_versions (group_id, artifact_id, branch_id, branch_order, version)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			&sqlitex.ExecOptions{Args: []any{
				ga.GroupID.RawValue(), ga.ArtifactID, string(entry.BranchID), entry.BranchOrder, entry.GAV.Version,
			}})
		if err != nil {
			return err
		}
		if h.Changes() == 0 {
			return &registryerr.BranchVersionAlreadyExistsError{GAV: entry.GAV, BranchID: entry.BranchID}
		}
		return nil
	})
}

// RebuildLatest fills an empty LATEST branch with every version of the
// artifact in creation order. It reports whether anything was added.
func (g *Graph) RebuildLatest(ctx context.Context, ga model.GA) (bool, error) {
	return handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (bool, error) {
		populated, err := exists(h, `SELECT 1 FROM branch_versions WHERE group_id = ? AND artifact_id = ? AND branch_id = ? LIMIT 1`,
			ga.GroupID.RawValue(), ga.ArtifactID, string(model.Latest))
		if err != nil || populated {
			return false, err
		}
		versions, err := queryVersions(h, `SELECT `+versionColumns+` FROM versions WHERE group_id = ? AND artifact_id = ? ORDER BY version_order`, gaArgs(ga)...)
		if err != nil || len(versions) == 0 {
			return false, err
		}
		for _, version := range versions {
			if err := g.appendToBranch(h, version.GAV, model.Latest, true); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

func boolInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

func queryBranches(h *handle.Handle, query string, args ...any) ([]Branch, error) {
	var branches []Branch
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			branches = append(branches, scanBranch(stmt))
			return nil
		},
	})
	return branches, err
}
