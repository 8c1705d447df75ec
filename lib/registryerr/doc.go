// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registryerr defines the registry's error taxonomy.
//
// Every failure a caller can act on is a concrete type carrying the
// coordinates it concerns: [VersionNotFoundError] names the GAV,
// [VersionAlreadyExistsError] may carry the conflicting global id, and
// so on. Callers extract details with errors.As and classify with
// errors.Is against the category sentinels:
//
//   - [ErrNotFound]: the artifact, version, branch, rule, content,
//     group, or comment does not exist. Never retried.
//   - [ErrConflict]: the entity already exists. Surfaced on direct
//     calls, logged and skipped during bulk import.
//   - [ErrNotAllowed]: the operation would break a structural
//     invariant, such as deleting the latest branch.
//   - [ErrInvalid]: malformed input (bad identifiers, empty reference
//     lists where content is required).
//   - [ErrIntegrity]: stored data violates an invariant the registry
//     relies on, such as a reference without an artifact id.
//   - [ErrStorage]: the database failed. Always rolls back the
//     enclosing transaction.
//
// There are no automatic retries anywhere in the registry core; retry
// policy belongs to the caller.
package registryerr
