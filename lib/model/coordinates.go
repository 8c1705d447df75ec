// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	maxArtifactIDLength = 512
	maxVersionLength    = 256
	maxBranchIDLength   = 256
)

// GA identifies an artifact: a group and an artifact id.
type GA struct {
	GroupID    GroupID
	ArtifactID string
}

// NewGA builds a GA from raw identifiers, validating both.
func NewGA(groupID, artifactID string) (GA, error) {
	group, err := ParseGroupID(groupID)
	if err != nil {
		return GA{}, err
	}
	if err := ValidateArtifactID(artifactID); err != nil {
		return GA{}, err
	}
	return GA{GroupID: group, ArtifactID: artifactID}, nil
}

// WithVersion returns the GAV for version of this artifact.
func (ga GA) WithVersion(version string) GAV {
	return GAV{GroupID: ga.GroupID, ArtifactID: ga.ArtifactID, Version: version}
}

func (ga GA) String() string {
	return ga.GroupID.String() + "/" + ga.ArtifactID
}

// GAV identifies one version of an artifact.
type GAV struct {
	GroupID    GroupID
	ArtifactID string
	Version    string
}

// NewGAV builds a GAV from raw identifiers, validating all three.
func NewGAV(groupID, artifactID, version string) (GAV, error) {
	ga, err := NewGA(groupID, artifactID)
	if err != nil {
		return GAV{}, err
	}
	if err := ValidateVersion(version); err != nil {
		return GAV{}, err
	}
	return ga.WithVersion(version), nil
}

// GA returns the artifact part of the coordinate.
func (gav GAV) GA() GA {
	return GA{GroupID: gav.GroupID, ArtifactID: gav.ArtifactID}
}

func (gav GAV) String() string {
	return gav.GroupID.String() + "/" + gav.ArtifactID + "@" + gav.Version
}

// ValidateArtifactID checks that id is non-empty, at most 512 bytes,
// and free of control characters.
func ValidateArtifactID(id string) error {
	if id == "" {
		return fmt.Errorf("artifact id is required")
	}
	if len(id) > maxArtifactIDLength {
		return fmt.Errorf("artifact id longer than %d characters", maxArtifactIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("artifact id %q contains a control character", id)
		}
	}
	return nil
}

// ValidateVersion checks a version id against [a-zA-Z0-9._+-]{1,256}.
func ValidateVersion(version string) error {
	if err := validateToken(version, maxVersionLength); err != nil {
		return fmt.Errorf("version: %w", err)
	}
	return nil
}

func validateToken(value string, maxLength int) error {
	if value == "" {
		return fmt.Errorf("value is required")
	}
	if len(value) > maxLength {
		return fmt.Errorf("%q is longer than %d characters", value, maxLength)
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if !groupChars[c] && c != '+' {
			return fmt.Errorf("%q contains invalid character %q", value, c)
		}
	}
	return nil
}

// BranchID names a branch of an artifact.
type BranchID string

// Latest is the implicit branch every new version is appended to. It
// is maintained by the registry and can never be deleted.
const Latest BranchID = "latest"

// ParseBranchID validates a branch id against [a-zA-Z0-9._+-]{1,256}.
// Any letter case of "latest" names Latest.
func ParseBranchID(raw string) (BranchID, error) {
	if strings.EqualFold(raw, string(Latest)) {
		return Latest, nil
	}
	if err := validateToken(raw, maxBranchIDLength); err != nil {
		return "", fmt.Errorf("branch id: %w", err)
	}
	return BranchID(raw), nil
}

// IsLatest reports whether b is the implicit latest branch.
func (b BranchID) IsLatest() bool { return b == Latest }

func (b BranchID) String() string { return string(b) }
