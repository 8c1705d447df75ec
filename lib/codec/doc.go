// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the registry's CBOR configuration.
//
// CBOR is the registry's internal format: export archives are CBOR
// sequences of entity records, and the version table stores label maps
// as CBOR blobs. JSON appears only where the outside world reads it:
// CLI --json output and the reference list that feeds the content hash.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same entity always encodes to the same bytes. That matters for the
// archive digest: exporting an unchanged registry twice yields
// byte-identical record streams.
//
// Buffers:
//
//	data, err := codec.Marshal(entity)
//	err = codec.Unmarshal(data, &entity)
//
// Streams (archives):
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct tags
//
// A `cbor` tag marks a type that is only ever CBOR (archive records).
// A `json` tag marks a type that is both; fxamacker/cbor falls back to
// `json` tags when `cbor` tags are absent. Never put both on one field.
package codec
