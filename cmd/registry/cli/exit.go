// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/registry/lib/registryerr"
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have written its own
// output already.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Process exit codes for classified failures.
const (
	ExitFailure    = 1
	ExitInvalid    = 2
	ExitNotFound   = 3
	ExitConflict   = 4
	ExitNotAllowed = 5
	ExitIntegrity  = 6
)

// ExitCodeFor maps an error returned by a command onto a process exit
// code through the registry taxonomy sentinels. [ToolError] values
// match the sentinel of their category. Anything else is [ExitFailure].
func ExitCodeFor(err error) int {
	switch {
	case errors.Is(err, registryerr.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, registryerr.ErrConflict):
		return ExitConflict
	case errors.Is(err, registryerr.ErrNotAllowed):
		return ExitNotAllowed
	case errors.Is(err, registryerr.ErrInvalid):
		return ExitInvalid
	case errors.Is(err, registryerr.ErrIntegrity):
		return ExitIntegrity
	}
	return ExitFailure
}
