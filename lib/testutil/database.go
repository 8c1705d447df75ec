// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/sqlitepool"
)

// OpenDatabase creates a migrated registry database in a temporary
// directory. The pool is closed when the test completes.
func OpenDatabase(t *testing.T) *sqlitepool.Pool {
	t.Helper()
	pool, err := registrydb.Open(context.Background(), registrydb.Config{
		Path:     filepath.Join(t.TempDir(), "registry.db"),
		PoolSize: 4,
	})
	if err != nil {
		t.Fatalf("opening registry database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// NewHandles opens a fresh database and returns a handle manager over
// it.
func NewHandles(t *testing.T) *handle.Manager {
	t.Helper()
	manager, err := handle.New(handle.Config{Pool: OpenDatabase(t), DataSource: "registry"})
	if err != nil {
		t.Fatalf("creating handle manager: %v", err)
	}
	return manager
}
