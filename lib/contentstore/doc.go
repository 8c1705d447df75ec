// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentstore owns the registry's content rows: raw documents
// deduplicated by content hash.
//
// The content hash is sha256 of the raw bytes when the document has no
// references, and sha256 of the bytes followed by the JSON encoding of
// the reference list otherwise. Order matters: the same references in
// a different order are different content. [Store.Create] returns the
// existing id when a row with the hash exists; the UNIQUE constraint
// on content_hash makes this hold even for concurrent writers.
//
// The canonical hash is computed on demand by [Store.CanonicalHash]
// and cached in the row. It runs the artifact type's canonicalizer
// over the document (with its references resolved by name) and hashes
// the result the same way as the content hash. Canonicalization is
// best-effort: when it fails the raw bytes are hashed instead and the
// failure is only logged at debug level.
//
// Blobs are stored compressed with the configured codec (see
// lib/compress). Rows read outside a transaction are cached by id
// with patrickmn/go-cache; content rows never change apart from the
// canonical hash, which updates the cached entry when it is set.
package contentstore
