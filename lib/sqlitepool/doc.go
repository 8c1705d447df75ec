// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the registry's SQLite connection pool.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies the
// pragmas every registry connection runs with:
//
//   - journal_mode=WAL: readers proceed while a single writer commits.
//   - synchronous=NORMAL: commits survive a process crash.
//   - busy_timeout=5000: writers wait up to 5 seconds for the lock.
//   - foreign_keys=OFF: the version graph maintains its own cascades
//     (version delete prunes branches, last version delete removes the
//     artifact) inside one transaction.
//   - cache_size=-8192 and mmap_size=268435456: 8 MB page cache and
//     256 MB of memory-mapped reads per connection.
//   - temp_store=MEMORY.
//
// Callers [Pool.Take] a connection and [Pool.Put] it back. A
// connection must not be shared between goroutines. Registry code does
// not call Take directly; it goes through lib/handle, which scopes one
// connection and one transaction to a call chain.
//
// [IsConstraint] classifies constraint violations so that stores can
// turn a UNIQUE failure into the matching already-exists error.
package sqlitepool
