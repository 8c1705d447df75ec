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
	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Comment is a note attached to one version by global id.
type Comment struct {
	CommentID int64
	GlobalID  int64
	CreatedBy string
	CreatedOn time.Time
	Value     string
}

const commentColumns = `comment_id, global_id, created_by, created_on, value`

func scanComment(stmt *sqlite.Stmt) Comment {
	return Comment{
		CommentID: stmt.ColumnInt64(0),
		GlobalID:  stmt.ColumnInt64(1),
		CreatedBy: stmt.ColumnText(2),
		CreatedOn: fromMillis(stmt.ColumnInt64(3)),
		Value:     stmt.ColumnText(4),
	}
}

// CreateComment attaches a comment to the version at gav.
func (g *Graph) CreateComment(ctx context.Context, gav model.GAV, createdBy, value string) (Comment, error) {
	return handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Comment, error) {
		version, err := getVersion(h, gav)
		if err != nil {
			return Comment{}, err
		}
		id, err := registrydb.NextID(h.Conn(), registrydb.CommentIDs)
		if err != nil {
			return Comment{}, registryerr.Storage("allocate comment id", err)
		}
		comment := Comment{
			CommentID: id,
			GlobalID:  version.GlobalID,
			CreatedBy: createdBy,
			CreatedOn: fromMillis(g.now()),
			Value:     value,
		}
		return comment, insertComment(h, comment)
	})
}

// ImportComment stores an archived comment on the version with
// comment.GlobalID. The archived comment id is kept when it is free;
// otherwise a fresh one is allocated.
func (g *Graph) ImportComment(ctx context.Context, comment Comment) (Comment, error) {
	return handle.With(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Comment, error) {
		found, err := exists(h, `SELECT 1 FROM versions WHERE global_id = ?`, comment.GlobalID)
		if err != nil {
			return Comment{}, err
		}
		if !found {
			return Comment{}, &registryerr.VersionNotFoundError{GlobalID: comment.GlobalID}
		}
		taken := comment.CommentID <= 0
		if !taken {
			if taken, err = exists(h, `SELECT 1 FROM comments WHERE comment_id = ?`, comment.CommentID); err != nil {
				return Comment{}, err
			}
		}
		if taken {
			if comment.CommentID, err = registrydb.NextID(h.Conn(), registrydb.CommentIDs); err != nil {
				return Comment{}, registryerr.Storage("allocate comment id", err)
			}
		}
		if comment.CreatedOn.IsZero() {
			comment.CreatedOn = fromMillis(g.now())
		}
		return comment, insertComment(h, comment)
	})
}

func insertComment(h *handle.Handle, comment Comment) error {
	return h.Execute(`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			comment.CommentID, comment.GlobalID, comment.CreatedBy, toMillis(comment.CreatedOn), comment.Value,
		}})
}

// ListComments returns the comments of a version, newest first.
func (g *Graph) ListComments(ctx context.Context, gav model.GAV) ([]Comment, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Comment, error) {
		version, err := getVersion(h, gav)
		if err != nil {
			return nil, err
		}
		return queryComments(h, `SELECT `+commentColumns+` FROM comments WHERE global_id = ? ORDER BY created_on DESC, comment_id DESC`, version.GlobalID)
	})
}

// UpdateComment replaces the text of a comment.
func (g *Graph) UpdateComment(ctx context.Context, gav model.GAV, commentID int64, value string) error {
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		version, err := getVersion(h, gav)
		if err != nil {
			return err
		}
		err = h.Execute(`UPDATE comments SET value = ? WHERE comment_id = ? AND global_id = ?`,
			&sqlitex.ExecOptions{Args: []any{value, commentID, version.GlobalID}})
		if err != nil {
			return err
		}
		if h.Changes() == 0 {
			return &registryerr.CommentNotFoundError{GAV: gav, CommentID: commentID}
		}
		return nil
	})
}

// DeleteComment removes a comment.
func (g *Graph) DeleteComment(ctx context.Context, gav model.GAV, commentID int64) error {
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		version, err := getVersion(h, gav)
		if err != nil {
			return err
		}
		err = h.Execute(`DELETE FROM comments WHERE comment_id = ? AND global_id = ?`,
			&sqlitex.ExecOptions{Args: []any{commentID, version.GlobalID}})
		if err != nil {
			return err
		}
		if h.Changes() == 0 {
			return &registryerr.CommentNotFoundError{GAV: gav, CommentID: commentID}
		}
		return nil
	})
}

func queryComments(h *handle.Handle, query string, args ...any) ([]Comment, error) {
	var comments []Comment
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			comments = append(comments, scanComment(stmt))
			return nil
		},
	})
	return comments, err
}
