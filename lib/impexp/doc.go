// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package impexp moves a registry in and out of a portable archive.
//
// The unit of transfer is an [Entity]: one group, rule, content row,
// version, branch position, or comment, carrying the identifiers it
// had in the source registry. The [Exporter] walks a registry and emits
// entities in dependency order (manifest, groups, global rules,
// contents, versions, branches, artifact rules, comments). The
// [Importer] accepts entities in any order: a version whose content
// has not arrived yet waits for it, and branch positions and comments
// wait for their version. Identifiers are remapped as entities land,
// unless the preserve options keep the archived ones.
//
// An archive is a magic header followed by a zstd-compressed sequence
// of CBOR records {type, version, body}. The last record is a trailer
// carrying the BLAKE3 digest of every preceding record; a reader that
// reaches the end without a matching trailer reports an integrity
// error. The whole stream may be wrapped in age encryption.
//
// Import is best-effort: conflicts with data already present are
// logged and counted in the [Report] rather than aborting the run.
// Entities still waiting when [Importer.PostImport] runs reference
// data the archive never supplied; they are listed in the report as
// dangling and are not imported.
package impexp
