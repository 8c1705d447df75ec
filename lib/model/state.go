// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"strings"
)

// VersionState is the lifecycle state of an artifact version. Any state
// may be set from any other.
type VersionState string

const (
	StateEnabled    VersionState = "ENABLED"
	StateDisabled   VersionState = "DISABLED"
	StateDeprecated VersionState = "DEPRECATED"
)

// ParseVersionState accepts a state name in any letter case.
func ParseVersionState(raw string) (VersionState, error) {
	switch state := VersionState(strings.ToUpper(raw)); state {
	case StateEnabled, StateDisabled, StateDeprecated:
		return state, nil
	default:
		return "", fmt.Errorf("unknown version state %q", raw)
	}
}

// RetrievalBehavior controls which member of a branch is treated as its
// leaf.
type RetrievalBehavior int

const (
	// RetrieveDefault treats the most recently appended version as the
	// leaf regardless of state.
	RetrieveDefault RetrievalBehavior = iota

	// RetrieveSkipDisabledLatest treats the most recently appended
	// version that is not DISABLED as the leaf.
	RetrieveSkipDisabledLatest
)

func (b RetrievalBehavior) String() string {
	switch b {
	case RetrieveDefault:
		return "DEFAULT"
	case RetrieveSkipDisabledLatest:
		return "SKIP_DISABLED_LATEST"
	default:
		return fmt.Sprintf("unknown(%d)", int(b))
	}
}

// RuleType names a class of rule attached globally or to an artifact.
type RuleType string

const (
	RuleValidity      RuleType = "VALIDITY"
	RuleCompatibility RuleType = "COMPATIBILITY"
	RuleIntegrity     RuleType = "INTEGRITY"
)

// ParseRuleType accepts a rule type name in any letter case.
func ParseRuleType(raw string) (RuleType, error) {
	switch rule := RuleType(strings.ToUpper(raw)); rule {
	case RuleValidity, RuleCompatibility, RuleIntegrity:
		return rule, nil
	default:
		return "", fmt.Errorf("unknown rule type %q", raw)
	}
}
