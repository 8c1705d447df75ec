// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the registry
// binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// pflag flag sets lazily, and prints structured help. Unknown commands
// and flags produce an error carrying the closest known spelling.
//
// Parameter structs declare their flags with struct tags and are bound
// through [FlagsFromParams]. Embedding [JSONOutput] adds a --json flag
// and [JSONOutput.EmitJSON].
//
// Errors from the registry core are mapped onto process exit codes by
// [ExitCodeFor], so scripts can tell a missing artifact from a conflict
// without parsing stderr.
package cli
