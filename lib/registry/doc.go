// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry assembles the registry core: a migrated SQLite
// database, the handle manager that scopes transactions over it, the
// content store, and the version graph.
//
// [Registry] owns the operations that span both stores (creating a
// version stores its content and its graph node in one transaction)
// and supplies the reference [refresolve.Loader] that resolves
// references against stored versions. Single-store operations are
// reached through [Registry.Graph] and [Registry.Contents].
package registry
