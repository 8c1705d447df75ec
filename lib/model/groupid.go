// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"strings"
)

const (
	// DefaultGroupName is the user-facing name of the default group.
	// A nil or empty group id, and any case variant of this name,
	// refer to the same group.
	DefaultGroupName = "default"

	// defaultGroupSentinel is the token stored in place of the default
	// group so that it can never collide with a user-created group.
	defaultGroupSentinel = "__$GROUPID$__"

	maxGroupIDLength = 512
)

// GroupID identifies a group of artifacts. The zero value is the
// default group.
type GroupID struct {
	id string
}

// DefaultGroup returns the default group.
func DefaultGroup() GroupID { return GroupID{} }

// ParseGroupID validates a raw group id. Empty strings, "default" in
// any letter case, and the stored sentinel all map to the default
// group. Any other value must match [a-zA-Z0-9._-]{1,512}.
func ParseGroupID(raw string) (GroupID, error) {
	if raw == "" || raw == defaultGroupSentinel || strings.EqualFold(raw, DefaultGroupName) {
		return GroupID{}, nil
	}
	if len(raw) > maxGroupIDLength {
		return GroupID{}, fmt.Errorf("group id longer than %d characters", maxGroupIDLength)
	}
	for i := 0; i < len(raw); i++ {
		if !groupChars[raw[i]] {
			return GroupID{}, fmt.Errorf("group id %q contains invalid character %q", raw, raw[i])
		}
	}
	return GroupID{id: raw}, nil
}

// MustParseGroupID is like ParseGroupID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseGroupID(raw string) GroupID {
	g, err := ParseGroupID(raw)
	if err != nil {
		panic(fmt.Sprintf("model.MustParseGroupID(%q): %v", raw, err))
	}
	return g
}

// IsDefault reports whether g is the default group.
func (g GroupID) IsDefault() bool { return g.id == "" }

// String returns the user-facing name: "default" for the default group.
func (g GroupID) String() string {
	if g.id == "" {
		return DefaultGroupName
	}
	return g.id
}

// RawValue returns the form persisted in storage and archives. The
// default group is stored as a sentinel token.
func (g GroupID) RawValue() string {
	if g.id == "" {
		return defaultGroupSentinel
	}
	return g.id
}

// MarshalText implements encoding.TextMarshaler using RawValue.
func (g GroupID) MarshalText() ([]byte, error) {
	return []byte(g.RawValue()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepts both the
// user-facing and the stored forms.
func (g *GroupID) UnmarshalText(data []byte) error {
	parsed, err := ParseGroupID(string(data))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

var groupChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		groupChars[c] = true
	}
	for c := byte('A'); c <= 'Z'; c++ {
		groupChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		groupChars[c] = true
	}
	groupChars['.'] = true
	groupChars['_'] = true
	groupChars['-'] = true
}
