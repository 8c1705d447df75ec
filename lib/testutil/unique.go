// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. The result is a valid artifact,
// version, and branch id.
//
//	artifactID := testutil.UniqueID("orders")  // "orders-1", "orders-2", ...
//	branchID := testutil.UniqueID("stable")    // "stable-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
