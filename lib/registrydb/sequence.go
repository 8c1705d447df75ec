// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registrydb

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Sequence names a monotonically increasing id allocator.
type Sequence string

const (
	ContentIDs Sequence = "content_id"
	GlobalIDs  Sequence = "global_id"
	CommentIDs Sequence = "comment_id"
)

// sequenceColumns maps each sequence to the table column holding the
// ids it allocates, for ResetSequence.
var sequenceColumns = map[Sequence]struct{ table, column string }{
	ContentIDs: {"content", "content_id"},
	GlobalIDs:  {"versions", "global_id"},
	CommentIDs: {"comments", "comment_id"},
}

// NextID allocates the next value of sequence. The first value is 1.
// Must run inside a write transaction so the allocation commits or
// rolls back with the row that uses it.
func NextID(conn *sqlite.Conn, sequence Sequence) (int64, error) {
	var id int64
	err := sqlitex.Execute(conn, `
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`,
		&sqlitex.ExecOptions{
			Args: []any{string(sequence)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("registrydb: next %s: %w", sequence, err)
	}
	return id, nil
}

// ResetSequence advances sequence to at least the largest id stored in
// its table. It never moves a sequence backwards.
func ResetSequence(conn *sqlite.Conn, sequence Sequence) error {
	target, ok := sequenceColumns[sequence]
	if !ok {
		return fmt.Errorf("registrydb: unknown sequence %q", sequence)
	}
	query := fmt.Sprintf(`
		INSERT INTO sequences (name, value)
		SELECT ?, COALESCE(MAX(%s), 0) FROM %s WHERE true
		ON CONFLICT(name) DO UPDATE SET value = MAX(value, excluded.value)`,
		target.column, target.table)
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: []any{string(sequence)}}); err != nil {
		return fmt.Errorf("registrydb: reset %s: %w", sequence, err)
	}
	return nil
}

// CurrentID returns the last value allocated from sequence, or 0 if
// none has been.
func CurrentID(conn *sqlite.Conn, sequence Sequence) (int64, error) {
	var id int64
	err := sqlitex.Execute(conn, `SELECT value FROM sequences WHERE name = ?`, &sqlitex.ExecOptions{
		Args: []any{string(sequence)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("registrydb: current %s: %w", sequence, err)
	}
	return id, nil
}
