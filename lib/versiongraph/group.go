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

// Group is a namespace of artifacts.
type Group struct {
	GroupID       model.GroupID
	Description   string
	ArtifactsType string
	CreatedBy     string
	CreatedOn     time.Time
	ModifiedBy    string
	ModifiedOn    time.Time
	Labels        map[string]string
}

const groupColumns = `group_id, description, artifacts_type, created_by, created_on, modified_by, modified_on, labels`

func scanGroup(stmt *sqlite.Stmt) (Group, error) {
	labels, err := decodeLabels(stmt, 7)
	if err != nil {
		return Group{}, err
	}
	return Group{
		GroupID:       parseGroup(stmt.ColumnText(0)),
		Description:   stmt.ColumnText(1),
		ArtifactsType: stmt.ColumnText(2),
		CreatedBy:     stmt.ColumnText(3),
		CreatedOn:     fromMillis(stmt.ColumnInt64(4)),
		ModifiedBy:    stmt.ColumnText(5),
		ModifiedOn:    fromMillis(stmt.ColumnInt64(6)),
		Labels:        labels,
	}, nil
}

// CreateGroup stores a new group. Zero CreatedOn and ModifiedOn are
// stamped from the clock.
func (g *Graph) CreateGroup(ctx context.Context, group Group) (Group, error) {
	return handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Group, error) {
		found, err := groupExists(h, group.GroupID)
		if err != nil {
			return Group{}, err
		}
		if found {
			return Group{}, &registryerr.GroupAlreadyExistsError{GroupID: group.GroupID}
		}
		if group.CreatedOn.IsZero() {
			group.CreatedOn = fromMillis(g.now())
		}
		if group.ModifiedOn.IsZero() {
			group.ModifiedOn = group.CreatedOn
		}
		labels, err := encodeLabels(group.Labels)
		if err != nil {
			return Group{}, err
		}
		err = h.Execute(`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				group.GroupID.RawValue(), group.Description, group.ArtifactsType,
				group.CreatedBy, toMillis(group.CreatedOn), group.ModifiedBy, toMillis(group.ModifiedOn), labels,
			}})
		if err != nil {
			return Group{}, err
		}
		g.logger.Debug("created group", "group_id", group.GroupID.String())
		return group, nil
	})
}

// GetGroup returns the group with groupID.
func (g *Graph) GetGroup(ctx context.Context, groupID model.GroupID) (Group, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Group, error) {
		groups, err := queryGroups(h, `SELECT `+groupColumns+` FROM groups WHERE group_id = ?`, groupID.RawValue())
		if err != nil {
			return Group{}, err
		}
		if len(groups) == 0 {
			return Group{}, &registryerr.GroupNotFoundError{GroupID: groupID}
		}
		return groups[0], nil
	})
}

// ListGroups returns every group ordered by id.
func (g *Graph) ListGroups(ctx context.Context) ([]Group, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Group, error) {
		return queryGroups(h, `SELECT `+groupColumns+` FROM groups ORDER BY group_id`)
	})
}

// DeleteGroup removes an empty group. A group that still holds
// artifacts cannot be deleted.
func (g *Graph) DeleteGroup(ctx context.Context, groupID model.GroupID) error {
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		found, err := groupExists(h, groupID)
		if err != nil {
			return err
		}
		if !found {
			return &registryerr.GroupNotFoundError{GroupID: groupID}
		}
		populated, err := exists(h, `SELECT 1 FROM artifacts WHERE group_id = ? LIMIT 1`, groupID.RawValue())
		if err != nil {
			return err
		}
		if populated {
			return registryerr.NotAllowed("group %s still contains artifacts", groupID)
		}
		return h.Execute(`DELETE FROM groups WHERE group_id = ?`, &sqlitex.ExecOptions{Args: []any{groupID.RawValue()}})
	})
}

func groupExists(h *handle.Handle, groupID model.GroupID) (bool, error) {
	return exists(h, `SELECT 1 FROM groups WHERE group_id = ?`, groupID.RawValue())
}

// ensureGroup creates groupID with default metadata if it is absent.
func (g *Graph) ensureGroup(h *handle.Handle, groupID model.GroupID, createdBy string) error {
	now := g.now()
	return h.Execute(`
		INSERT INTO groups (group_id, created_by, created_on, modified_on) VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{groupID.RawValue(), createdBy, now, now}})
}

func queryGroups(h *handle.Handle, query string, args ...any) ([]Group, error) {
	var groups []Group
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			group, err := scanGroup(stmt)
			if err != nil {
				return err
			}
			groups = append(groups, group)
			return nil
		},
	})
	return groups, err
}
