// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registrydb owns the registry's SQLite schema and its id
// sequences.
//
// [Open] opens a [sqlitepool.Pool] and brings the database to the
// current schema with sqlitemigration before returning it. Migrations
// are append-only: each entry in the migration list runs exactly once
// per database, tracked by SQLite's user_version.
//
// Identifiers handed out to clients (content ids, global ids, comment
// ids) come from named rows in the sequences table, incremented with
// [NextID] inside the caller's transaction. After a bulk import that
// preserved ids, [ResetSequence] advances a sequence past the largest
// id present so later allocations cannot collide.
package registrydb
