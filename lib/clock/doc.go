// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Registry components stamp createdOn, modifiedOn, and exportedOn from
// a Clock instead of calling time.Now directly. In production, Real()
// provides the standard library behavior. In tests, Fake() provides a
// deterministic clock that moves only when Advance or Set is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	reg := registry.New(registry.Config{Clock: c, ...})
//	c.Advance(time.Minute)
package clock
