// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"context"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
)

// The Walk methods stream every row of one kind to fn inside a single
// read scope. Returning an error from fn stops the walk.

// WalkGroups visits every group ordered by id.
func (g *Graph) WalkGroups(ctx context.Context, fn func(Group) error) error {
	return g.walk(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY group_id`, func(stmt *sqlite.Stmt) error {
		group, err := scanGroup(stmt)
		if err != nil {
			return err
		}
		return fn(group)
	})
}

// WalkVersions visits every version with its artifact type, ordered by
// group, artifact, and version order.
func (g *Graph) WalkVersions(ctx context.Context, fn func(artifactType string, version Version) error) error {
	query := `SELECT ` + prefixed("v.", versionColumns) + `, a.artifact_type
		FROM versions v
		JOIN artifacts a ON a.group_id = v.group_id AND a.artifact_id = v.artifact_id
		ORDER BY v.group_id, v.artifact_id, v.version_order`
	return g.walk(ctx, query, func(stmt *sqlite.Stmt) error {
		version, err := scanVersion(stmt)
		if err != nil {
			return err
		}
		return fn(stmt.ColumnText(14), version)
	})
}

// WalkBranches visits every branch position, ordered by artifact,
// branch, and position.
func (g *Graph) WalkBranches(ctx context.Context, fn func(Branch, BranchMember) error) error {
	query := `SELECT ` + prefixed("b.", branchColumns) + `, bv.version, bv.branch_order
		FROM branches b
		JOIN branch_versions bv ON bv.group_id = b.group_id AND bv.artifact_id = b.artifact_id AND bv.branch_id = b.branch_id
		ORDER BY b.group_id, b.artifact_id, b.branch_id, bv.branch_order`
	return g.walk(ctx, query, func(stmt *sqlite.Stmt) error {
		return fn(scanBranch(stmt), BranchMember{
			Version:     stmt.ColumnText(7),
			BranchOrder: stmt.ColumnInt64(8),
		})
	})
}

// WalkRules visits global rules first, then artifact rules.
func (g *Graph) WalkRules(ctx context.Context, fn func(Rule) error) error {
	return g.walk(ctx, `SELECT group_id, artifact_id, rule_type, configuration FROM rules
		ORDER BY artifact_id <> '', group_id, artifact_id, rule_type`, func(stmt *sqlite.Stmt) error {
		return fn(scanRule(stmt))
	})
}

// WalkComments visits every comment ordered by id.
func (g *Graph) WalkComments(ctx context.Context, fn func(Comment) error) error {
	return g.walk(ctx, `SELECT `+commentColumns+` FROM comments ORDER BY comment_id`, func(stmt *sqlite.Stmt) error {
		return fn(scanComment(stmt))
	})
}

func (g *Graph) walk(ctx context.Context, query string, row func(*sqlite.Stmt) error) error {
	_, err := handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (struct{}, error) {
		return struct{}{}, h.Execute(query, &sqlitex.ExecOptions{ResultFunc: row})
	})
	return err
}

// prefixed qualifies each column of a column list with a table alias.
func prefixed(prefix, columns string) string {
	fields := strings.Split(columns, ",")
	for i, field := range fields {
		fields[i] = prefix + strings.TrimSpace(field)
	}
	return strings.Join(fields, ", ")
}
