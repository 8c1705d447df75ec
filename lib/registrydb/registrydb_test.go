// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registrydb_test

import (
	"context"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/sqlitepool"
)

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	pool, err := registrydb.Open(context.Background(), registrydb.Config{Path: path, PoolSize: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pool.Close()

	// Reopening an already migrated database must not rerun the DDL.
	pool = openPool(t, path)
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)
	if err := sqlitex.ExecuteTransient(conn, "SELECT count(*) FROM branch_versions", nil); err != nil {
		t.Fatalf("branch_versions missing after reopen: %v", err)
	}
}

func TestNextID_Monotonic(t *testing.T) {
	pool := openPool(t, filepath.Join(t.TempDir(), "registry.db"))
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	for want := int64(1); want <= 3; want++ {
		got, err := registrydb.NextID(conn, registrydb.GlobalIDs)
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if got != want {
			t.Errorf("NextID = %d, want %d", got, want)
		}
	}

	// Sequences are independent.
	got, err := registrydb.NextID(conn, registrydb.ContentIDs)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if got != 1 {
		t.Errorf("first content id = %d, want 1", got)
	}
}

func TestResetSequence_NeverMovesBackwards(t *testing.T) {
	pool := openPool(t, filepath.Join(t.TempDir(), "registry.db"))
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO comments (comment_id, global_id, created_on, value) VALUES (?, 1, 0, 'x')`,
		&sqlitex.ExecOptions{Args: []any{int64(40)}})
	if err != nil {
		t.Fatalf("insert comment: %v", err)
	}

	if err := registrydb.ResetSequence(conn, registrydb.CommentIDs); err != nil {
		t.Fatalf("ResetSequence: %v", err)
	}
	next, err := registrydb.NextID(conn, registrydb.CommentIDs)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if next != 41 {
		t.Errorf("NextID after reset = %d, want 41", next)
	}

	for range 10 {
		if _, err := registrydb.NextID(conn, registrydb.CommentIDs); err != nil {
			t.Fatalf("NextID: %v", err)
		}
	}
	if err := registrydb.ResetSequence(conn, registrydb.CommentIDs); err != nil {
		t.Fatalf("ResetSequence: %v", err)
	}
	current, err := registrydb.CurrentID(conn, registrydb.CommentIDs)
	if err != nil {
		t.Fatalf("CurrentID: %v", err)
	}
	if current != 51 {
		t.Errorf("sequence after second reset = %d, want 51", current)
	}
}

func openPool(t *testing.T, path string) *sqlitepool.Pool {
	t.Helper()
	pool, err := registrydb.Open(context.Background(), registrydb.Config{Path: path, PoolSize: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}
