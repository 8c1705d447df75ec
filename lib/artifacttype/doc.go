// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifacttype maps artifact types (AVRO, JSON, OPENAPI, ...)
// to the format-specific capabilities the storage core calls through:
//
//   - [Canonicalizer] normalizes a document so that semantically equal
//     content hashes the same. Failures are the caller's to absorb;
//     the content store falls back to the raw bytes.
//   - [Dereferencer] rewrites the reference pointers inside a document
//     ($ref targets, proto imports) according to a name-to-coordinate
//     map produced by reference resolution.
//
// [Default] registers the structural providers shipped with the
// registry: JSON-family types are canonicalized as sorted, compact
// JSON (comments and trailing commas tolerated), OPENAPI and ASYNCAPI
// additionally accept YAML, and PROTOBUF imports are rewritable.
// Types without a dedicated provider get the identity behavior.
// Full format validators are external and plug in through [Registry.Register].
package artifacttype
