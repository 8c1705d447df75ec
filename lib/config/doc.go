// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the registry
// binary.
//
// Configuration is loaded from a single file specified by either the
// REGISTRY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production without an explicit
// section preserves archived identifiers on import and enforces
// semver version ids.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${REGISTRY_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// This package depends on no other registry packages; callers convert
// the string-valued settings with the parsers of the packages that
// own them.
package config
