// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress provides the codecs the registry uses for stored
// content blobs and archive streams.
//
// Content blobs are compressed one at a time with [Compress], which
// records the codec actually applied as a [Tag] next to the blob:
// content that does not shrink is stored uncompressed regardless of
// the configured codec. [Auto] picks zstd for text media types and
// probes anything else.
//
// Archive streams use zstd framing through [NewWriter] and [NewReader].
package compress
