// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handle scopes one SQLite connection and one transaction to a
// call chain.
//
// Storage operations call each other freely: creating a version hashes
// content, hashing content resolves references, resolving references
// reads other versions. Each of those entry points opens a scope with
// [With], [View], or [Manager.Do]. The first scope in a call chain
// takes a connection from the pool and begins a transaction; every
// scope nested inside it (found through the context.Context passed to
// the callback) reuses that connection and transaction and only bumps
// a nesting level. When the outermost scope returns, the transaction
// commits, or rolls back if any scope in the chain failed, and the
// connection goes back to the pool.
//
// The rollback mark is sticky. An inner scope that returns an error
// dooms the whole transaction even if an outer caller handles the
// error and carries on; the outermost scope then rolls back and
// reports [ErrRolledBack]. Code that wants best-effort behavior must
// run each attempt in its own top-level scope.
//
// Scopes are keyed by the manager's data source name, so managers over
// different databases nest independently.
//
// Cancellation is honored only until a connection is acquired. After
// that the connection's interrupt is cleared and the callback receives
// a context detached from the caller's cancellation, so an open
// transaction always runs to commit or rollback.
package handle
