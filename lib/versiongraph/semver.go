// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/bureau-foundation/registry/lib/model"
)

// SemverMode selects how version ids map to semver branches.
type SemverMode int

const (
	// SemverDisabled maintains no semver branches.
	SemverDisabled SemverMode = iota

	// SemverCoerce accepts "1", "1.2", and a leading "v" in addition
	// to full semantic versions. Version ids that still do not parse
	// get no semver branches.
	SemverCoerce

	// SemverStrict accepts only MAJOR.MINOR.PATCH with optional
	// prerelease and build suffixes, and rejects other version ids.
	SemverStrict
)

func (m SemverMode) String() string {
	switch m {
	case SemverDisabled:
		return "disabled"
	case SemverCoerce:
		return "coerce"
	case SemverStrict:
		return "strict"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseSemverMode accepts "disabled", "coerce", or "strict". The empty
// string is disabled.
func ParseSemverMode(raw string) (SemverMode, error) {
	switch strings.ToLower(raw) {
	case "", "disabled":
		return SemverDisabled, nil
	case "coerce":
		return SemverCoerce, nil
	case "strict":
		return SemverStrict, nil
	default:
		return 0, fmt.Errorf("unknown semver mode %q", raw)
	}
}

// semverBranches returns the semver branches version belongs to under
// mode. ok is false when the version id is not a semantic version.
func semverBranches(mode SemverMode, version string) (branches []model.BranchID, ok bool) {
	var (
		parsed *semver.Version
		err    error
	)
	switch mode {
	case SemverStrict:
		parsed, err = semver.StrictNewVersion(version)
	case SemverCoerce:
		parsed, err = semver.NewVersion(version)
	default:
		return nil, true
	}
	if err != nil {
		return nil, false
	}
	major := strconv.FormatUint(parsed.Major(), 10)
	minor := strconv.FormatUint(parsed.Minor(), 10)
	return []model.BranchID{
		model.BranchID(major + ".x"),
		model.BranchID(major + "." + minor + ".x"),
	}, true
}
