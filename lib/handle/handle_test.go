// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handle_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/sqlitepool"
)

func TestWith_NestedScopesShareConnection(t *testing.T) {
	manager := newManager(t, "primary")
	ctx := context.Background()

	_, err := handle.With(ctx, manager, func(ctx context.Context, outer *handle.Handle) (struct{}, error) {
		if depth := manager.Depth(ctx); depth != 1 {
			t.Errorf("outer depth = %d, want 1", depth)
		}
		return handle.With(ctx, manager, func(ctx context.Context, inner *handle.Handle) (struct{}, error) {
			if inner.Conn() != outer.Conn() {
				t.Error("nested scope took a second connection")
			}
			if depth := manager.Depth(ctx); depth != 2 {
				t.Errorf("inner depth = %d, want 2", depth)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if depth := manager.Depth(ctx); depth != 0 {
		t.Errorf("depth outside scope = %d, want 0", depth)
	}
}

func TestWith_CommitsAtOutermostExit(t *testing.T) {
	manager := newManager(t, "primary")
	ctx := context.Background()

	err := manager.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := insert(h, "outer"); err != nil {
			return err
		}
		return manager.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
			return insert(h, "inner")
		})
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := count(t, manager); got != 2 {
		t.Errorf("rows after commit = %d, want 2", got)
	}
}

func TestWith_RollbackIsSticky(t *testing.T) {
	manager := newManager(t, "primary")
	ctx := context.Background()
	failure := errors.New("inner failure")

	_, err := handle.With(ctx, manager, func(ctx context.Context, h *handle.Handle) (int, error) {
		if err := insert(h, "kept?"); err != nil {
			return 0, err
		}
		_, innerErr := handle.With(ctx, manager, func(ctx context.Context, h *handle.Handle) (int, error) {
			return 0, failure
		})
		if !errors.Is(innerErr, failure) {
			t.Errorf("inner error = %v, want %v", innerErr, failure)
		}
		// A later successful nested call cannot clear the mark.
		_, laterErr := handle.With(ctx, manager, func(ctx context.Context, h *handle.Handle) (int, error) {
			return 1, insert(h, "after")
		})
		if laterErr != nil {
			t.Errorf("later nested call: %v", laterErr)
		}
		return 1, nil
	})
	if !errors.Is(err, handle.ErrRolledBack) {
		t.Fatalf("With error = %v, want ErrRolledBack", err)
	}
	if got := count(t, manager); got != 0 {
		t.Errorf("rows after rollback = %d, want 0", got)
	}
}

func TestWith_RollbackAfterTransactionAlreadyEnded(t *testing.T) {
	manager := newManager(t, "primary")
	ctx := context.Background()
	failure := errors.New("statement aborted the transaction")

	_, err := handle.With(ctx, manager, func(ctx context.Context, h *handle.Handle) (int, error) {
		if err := insert(h, "gone"); err != nil {
			return 0, err
		}
		if err := sqlitex.ExecuteTransient(h.Conn(), "ROLLBACK", nil); err != nil {
			return 0, err
		}
		if !h.Conn().AutocommitEnabled() {
			t.Error("connection still inside a transaction after ROLLBACK")
		}
		return 0, failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("With error = %v, want %v", err, failure)
	}

	// The connection went back to the pool usable.
	err = manager.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		return insert(h, "next")
	})
	if err != nil {
		t.Fatalf("Do after ended transaction: %v", err)
	}
	if got := count(t, manager); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestWith_PropagatesTypedErrors(t *testing.T) {
	manager := newManager(t, "primary")
	notFound := &registryerr.ArtifactNotFoundError{GA: model.GA{ArtifactID: "missing"}}

	_, err := handle.With(context.Background(), manager, func(ctx context.Context, h *handle.Handle) (string, error) {
		return "", notFound
	})
	var typed *registryerr.ArtifactNotFoundError
	if !errors.As(err, &typed) || typed != notFound {
		t.Errorf("With error = %v, want the original *ArtifactNotFoundError", err)
	}
}

func TestDo_WrapsUnclassifiedErrors(t *testing.T) {
	manager := newManager(t, "primary")
	failure := errors.New("checked failure")

	err := manager.Do(context.Background(), func(ctx context.Context, h *handle.Handle) error {
		return failure
	})
	var storageErr *registryerr.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Do error = %T %v, want *StorageError", err, err)
	}
	if !errors.Is(err, failure) {
		t.Error("StorageError does not wrap the original error")
	}

	notAllowed := registryerr.NotAllowed("nope")
	err = manager.Do(context.Background(), func(ctx context.Context, h *handle.Handle) error {
		return notAllowed
	})
	if !errors.Is(err, registryerr.ErrNotAllowed) || errors.As(err, &storageErr) {
		t.Errorf("Do wrapped a classified error: %v", err)
	}
}

func TestWith_PanicRollsBackAndRepanics(t *testing.T) {
	manager := newManager(t, "primary")

	func() {
		defer func() {
			if recovered := recover(); recovered != "boom" {
				t.Errorf("recovered %v, want boom", recovered)
			}
		}()
		handle.With(context.Background(), manager, func(ctx context.Context, h *handle.Handle) (int, error) {
			if err := insert(h, "doomed"); err != nil {
				t.Fatalf("insert: %v", err)
			}
			panic("boom")
		})
	}()

	if got := count(t, manager); got != 0 {
		t.Errorf("rows after panic = %d, want 0", got)
	}
	// The connection went back to the pool in a usable state.
	if err := manager.Do(context.Background(), func(ctx context.Context, h *handle.Handle) error {
		return insert(h, "after panic")
	}); err != nil {
		t.Fatalf("Do after panic: %v", err)
	}
}

func TestWith_CancelledBeforeAcquire(t *testing.T) {
	manager := newManager(t, "primary")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := handle.With(ctx, manager, func(ctx context.Context, h *handle.Handle) (int, error) {
		called = true
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("With error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("callback ran under a cancelled context")
	}
}

func TestWith_CancellationAfterAcquireIsIgnored(t *testing.T) {
	manager := newManager(t, "primary")
	ctx, cancel := context.WithCancel(context.Background())

	err := manager.Do(ctx, func(scoped context.Context, h *handle.Handle) error {
		cancel()
		if scoped.Err() != nil {
			t.Errorf("scoped context observed cancellation: %v", scoped.Err())
		}
		return insert(h, "survives")
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := count(t, manager); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestWith_DataSourcesAreIndependent(t *testing.T) {
	first := newManager(t, "first")
	second := newManager(t, "second")

	_, err := handle.With(context.Background(), first, func(ctx context.Context, outer *handle.Handle) (int, error) {
		if second.Depth(ctx) != 0 {
			t.Error("second manager sees the first manager's scope")
		}
		return handle.With(ctx, second, func(ctx context.Context, inner *handle.Handle) (int, error) {
			if inner.Conn() == outer.Conn() {
				t.Error("different data sources shared a connection")
			}
			if first.Depth(ctx) != 1 || second.Depth(ctx) != 1 {
				t.Errorf("depths = %d/%d, want 1/1", first.Depth(ctx), second.Depth(ctx))
			}
			return 0, nil
		})
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}

func TestHandle_ExecuteWrapsDatabaseErrors(t *testing.T) {
	manager := newManager(t, "primary")
	err := manager.Do(context.Background(), func(ctx context.Context, h *handle.Handle) error {
		return h.Execute("INSERT INTO no_such_table (value) VALUES (1)", nil)
	})
	var storageErr *registryerr.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want *StorageError", err)
	}
	if storageErr.Op != "INSERT INTO no_such_table" {
		t.Errorf("Op = %q", storageErr.Op)
	}
}

func newManager(t *testing.T, dataSource string) *handle.Manager {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), dataSource+".db"),
		PoolSize: 2,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, `CREATE TABLE IF NOT EXISTS entries (value TEXT NOT NULL);`, nil)
		},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	manager, err := handle.New(handle.Config{Pool: pool, DataSource: dataSource})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return manager
}

func insert(h *handle.Handle, value string) error {
	return h.Execute("INSERT INTO entries (value) VALUES (?)", &sqlitex.ExecOptions{Args: []any{value}})
}

func count(t *testing.T, manager *handle.Manager) int {
	t.Helper()
	n, err := handle.View(context.Background(), manager, func(ctx context.Context, h *handle.Handle) (int, error) {
		var n int
		err := h.Execute("SELECT count(*) FROM entries", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n = stmt.ColumnInt(0)
				return nil
			},
		})
		return n, err
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
