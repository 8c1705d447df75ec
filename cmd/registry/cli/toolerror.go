// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/bureau-foundation/registry/lib/registryerr"
)

// ErrorCategory classifies failures detected by the command layer
// before any registry call: bad arguments, a missing input file, an
// output file that already exists.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryConflict   ErrorCategory = "conflict"
)

// ToolError is a command-layer failure. It matches the registry
// taxonomy sentinel for its category under [errors.Is], so scripts see
// the same exit code for "no such input file" as for "no such
// artifact".
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Is reports whether target is the registry sentinel for e's category.
func (e *ToolError) Is(target error) bool {
	switch e.Category {
	case CategoryValidation:
		return target == registryerr.ErrInvalid
	case CategoryNotFound:
		return target == registryerr.ErrNotFound
	case CategoryConflict:
		return target == registryerr.ErrConflict
	}
	return false
}

// Validation reports unusable arguments or flags.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing local input such as a content or key file.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict reports a refusal to overwrite an existing local file.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}
