// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for registry packages.
//
// [OpenDatabase] creates a migrated registry database in t.TempDir()
// and closes it when the test completes. [NewHandles] wraps such a
// database in a [handle.Manager]. [OpenRegistry] assembles a complete
// [registry.Registry] on a fresh database with a fake clock, which is
// what most package tests outside lib/registry need.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) for tests that fan out goroutines.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation: artifact ids, branch ids, label values.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
