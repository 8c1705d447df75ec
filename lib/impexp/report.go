// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp

import (
	"fmt"
	"strings"
)

// Report summarizes one import run.
type Report struct {
	RunID string

	// Imported counts stored entities by type. Manifests count when
	// logged.
	Imported map[EntityType]int

	// Conflicts counts entities that collided with data already
	// present and were skipped.
	Conflicts int

	// Failed counts rules and groups whose import failed for a reason
	// other than a conflict.
	Failed int

	// Skipped counts records of an unknown type or schema version.
	Skipped int

	// LatestRebuilt counts artifacts whose LATEST branch was filled by
	// PostImport because the archive carried no LATEST positions.
	LatestRebuilt int

	// Dangling lists entities still waiting for a dependency when the
	// import finished. They were not imported.
	Dangling []Dangling
}

// Dangling is an entity whose dependency never arrived.
type Dangling struct {
	Entity Entity

	// Missing names the absent dependency, e.g. "content 7".
	Missing string
}

// Total returns the number of imported entities of all types.
func (r Report) Total() int {
	total := 0
	for _, count := range r.Imported {
		total += count
	}
	return total
}

// String renders the report as one line per entity type followed by
// the totals, in export order.
func (r Report) String() string {
	var b strings.Builder
	for _, entityType := range EntityTypes {
		if count := r.Imported[entityType]; count > 0 {
			fmt.Fprintf(&b, "%-16s %d\n", entityType, count)
		}
	}
	fmt.Fprintf(&b, "conflicts %d, failed %d, skipped %d, dangling %d", r.Conflicts, r.Failed, r.Skipped, len(r.Dangling))
	return b.String()
}
