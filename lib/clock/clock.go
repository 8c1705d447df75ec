// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source used by registry components.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
