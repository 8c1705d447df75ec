// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package versiongraph stores the artifact graph: groups, artifacts,
// their versions, the branches that order those versions, rules, and
// per-version comments.
//
// Every artifact has the system-defined branch [model.Latest], to
// which each newly created version is appended. Custom branches are
// created by appending a version to them. Branch lists are returned in
// append order; the last element is the branch leaf. Under
// [model.RetrieveSkipDisabledLatest] trailing DISABLED versions are not
// considered when picking the leaf.
//
// Deleting a version removes it from every branch and removes its
// comments. Deleting the last version of an artifact removes the
// artifact, its branches, and its rules.
//
// When semver branching is enabled, versions whose id parses as a
// semantic version are also appended to the "MAJOR.x" and
// "MAJOR.MINOR.x" branches.
//
// All methods run inside a [handle.Manager] scope and join any scope
// already present in the context, so callers can compose several
// graph operations (and content store writes) into one transaction.
package versiongraph
