// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/sqlitepool"
)

// ErrRolledBack is returned by the outermost scope when a nested scope
// failed but the failure was not propagated to the top.
var ErrRolledBack = errors.New("handle: transaction rolled back after a nested failure")

// Config holds the parameters for [New].
type Config struct {
	// Pool supplies connections. Required.
	Pool *sqlitepool.Pool

	// DataSource names the logical database. Scopes from managers
	// with different names never share a handle. Defaults to the
	// pool's path.
	DataSource string

	// Logger receives rollback and cleanup failures. Nil discards.
	Logger *slog.Logger
}

// Manager opens transactional scopes over one pool.
type Manager struct {
	pool       *sqlitepool.Pool
	dataSource string
	logger     *slog.Logger
}

// New creates a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("handle: Pool is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dataSource := cfg.DataSource
	if dataSource == "" {
		dataSource = cfg.Pool.Path()
	}
	return &Manager{pool: cfg.Pool, dataSource: dataSource, logger: logger}, nil
}

// DataSource returns the logical database name.
func (m *Manager) DataSource() string { return m.dataSource }

// Handle is the connection of an active scope. It is only valid inside
// the callback it was passed to.
type Handle struct {
	conn *sqlite.Conn
}

// Conn returns the underlying connection for callers that need the
// full sqlitex API.
func (h *Handle) Conn() *sqlite.Conn { return h.conn }

// Execute runs query with sqlitex.Execute. Database failures come back
// as *registryerr.StorageError; errors returned by opts.ResultFunc pass
// through unchanged if they are already classified.
func (h *Handle) Execute(query string, opts *sqlitex.ExecOptions) error {
	if err := sqlitex.Execute(h.conn, query, opts); err != nil {
		return registryerr.Storage(operation(query), err)
	}
	return nil
}

// Changes returns the number of rows touched by the last statement.
func (h *Handle) Changes() int { return h.conn.Changes() }

// operation summarizes a statement for error messages by its first
// three words, e.g. "INSERT INTO versions".
func operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}

type scopeKey struct {
	dataSource string
}

type scope struct {
	handle   *Handle
	level    int
	rollback bool
}

// Depth returns the nesting level of m's scope in ctx: 0 outside any
// scope, 1 in the outermost.
func (m *Manager) Depth(ctx context.Context) int {
	if current, ok := ctx.Value(scopeKey{m.dataSource}).(*scope); ok {
		return current.level
	}
	return 0
}

// With runs fn inside a write scope and returns its result. Errors
// from fn are returned unchanged so callers can match the typed
// registry errors.
func With[R any](ctx context.Context, m *Manager, fn func(context.Context, *Handle) (R, error)) (R, error) {
	return run(ctx, m, "BEGIN IMMEDIATE", fn)
}

// View is With for read-only work. A top-level View begins a deferred
// transaction so concurrent readers do not queue behind the write
// lock. Nested inside a write scope it simply joins it.
func View[R any](ctx context.Context, m *Manager, fn func(context.Context, *Handle) (R, error)) (R, error) {
	return run(ctx, m, "BEGIN DEFERRED", fn)
}

// Do runs a side-effecting fn inside a write scope. Any error that is
// not already part of the registry taxonomy is wrapped in a
// *registryerr.StorageError.
func (m *Manager) Do(ctx context.Context, fn func(context.Context, *Handle) error) error {
	_, err := With(ctx, m, func(ctx context.Context, h *Handle) (struct{}, error) {
		return struct{}{}, fn(ctx, h)
	})
	return registryerr.Storage("transaction", err)
}

func run[R any](ctx context.Context, m *Manager, begin string, fn func(context.Context, *Handle) (R, error)) (result R, err error) {
	if current, ok := ctx.Value(scopeKey{m.dataSource}).(*scope); ok {
		return nested(ctx, current, fn)
	}

	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	conn, err := m.pool.Take(ctx)
	if err != nil {
		return zero, &registryerr.StorageError{Op: "acquire connection", Err: err}
	}
	defer m.pool.Put(conn)
	conn.SetInterrupt(nil)

	if err := sqlitex.ExecuteTransient(conn, begin, nil); err != nil {
		return zero, &registryerr.StorageError{Op: "begin", Err: err}
	}

	current := &scope{handle: &Handle{conn: conn}, level: 1}
	scoped := context.WithValue(context.WithoutCancel(ctx), scopeKey{m.dataSource}, current)

	defer func() {
		recovered := recover()
		if recovered != nil || err != nil {
			current.rollback = true
		}
		if endErr := m.end(conn, current.rollback); endErr != nil && err == nil {
			err = endErr
		}
		if recovered != nil {
			panic(recovered)
		}
		if current.rollback && err == nil {
			result, err = zero, ErrRolledBack
		}
	}()

	return fn(scoped, current.handle)
}

func nested[R any](ctx context.Context, current *scope, fn func(context.Context, *Handle) (R, error)) (result R, err error) {
	current.level++
	defer func() {
		current.level--
		if recovered := recover(); recovered != nil {
			current.rollback = true
			panic(recovered)
		}
		if err != nil {
			current.rollback = true
		}
	}()
	return fn(ctx, current.handle)
}

// end commits or rolls back the outermost transaction. A failed commit
// is rolled back and reported; a failed rollback is only logged since
// the original error is the one the caller needs.
func (m *Manager) end(conn *sqlite.Conn, rollback bool) error {
	if !rollback {
		err := sqlitex.ExecuteTransient(conn, "COMMIT", nil)
		if err == nil {
			return nil
		}
		m.logger.Error("commit failed, rolling back", "data_source", m.dataSource, "error", err)
		m.rollback(conn)
		return &registryerr.StorageError{Op: "commit", Err: err}
	}
	m.rollback(conn)
	return nil
}

func (m *Manager) rollback(conn *sqlite.Conn) {
	if conn.AutocommitEnabled() {
		return
	}
	if err := sqlitex.ExecuteTransient(conn, "ROLLBACK", nil); err != nil {
		m.logger.Error("rollback failed", "data_source", m.dataSource, "error", err)
	}
}
