// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the registry command tree.
//
// Every command that touches the database embeds registryParams, which
// contributes --config and --verbose and opens the registry described
// by the configuration file. Commands print tab-aligned text by default
// and indented JSON with --json.
package commands
