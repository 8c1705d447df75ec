// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package refresolve resolves an artifact's outgoing references into
// the documents they point at.
//
// [Resolver.ResolveWithContext] walks the reference graph depth-first.
// Every reference is keyed by its coordinate
// ("groupId:artifactId:version:name"), so two documents that both
// import a local "common.json" from different artifacts stay distinct.
// Each resolved document has its own pointers rewritten to coordinates
// before it is stored in the result, and the main document is rewritten
// last. The result is a self-consistent bundle: every pointer in every
// document names a key of the result map.
//
// [Resolver.ResolveReferences] is the plain variant used for
// canonicalization: it returns documents keyed by the local reference
// name and rewrites nothing.
//
// Both walks tolerate partial graphs. A loader that fails or returns
// nil is logged and the reference is skipped. A reference missing its
// artifact id, name, or version is different: that is corrupt stored
// data and fails the whole resolution with an integrity error.
// Cycles are cut at the first revisit.
package refresolve
