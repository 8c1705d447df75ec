// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/registry/lib/clock"
	"github.com/bureau-foundation/registry/lib/registry"
)

// Epoch is the initial time of the fake clock used by OpenRegistry.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// OpenRegistry opens a registry on a fresh database in t.TempDir()
// with a fake clock at Epoch. modify, when non-nil, adjusts the
// configuration before opening. The registry is closed when the test
// completes.
func OpenRegistry(t *testing.T, modify func(*registry.Config)) (*registry.Registry, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(Epoch)
	cfg := registry.Config{
		Path:     filepath.Join(t.TempDir(), "registry.db"),
		PoolSize: 4,
		Clock:    fake,
	}
	if modify != nil {
		modify(&cfg)
	}
	reg, err := registry.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg, fake
}
